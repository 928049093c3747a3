/**
 * Copyright 2022 kmeaw
 *
 * Licensed under the GNU Affero General Public License (AGPL).
 *
 * This program is free software: you can redistribute it and/or modify it
 * under the terms of the GNU Affero General Public License as published by the
 * Free Software Foundation, version 3 of the License.
 *
 * This program is distributed in the hope that it will be useful, but WITHOUT
 * ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
 * FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
 * for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */
package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/mattn/anko/env"
	"github.com/mattn/anko/vm"
	"github.com/pkg/errors"

	"hufpress/huffman"
)

// Policy runs the user's anko script that picks a header format when the
// format is "auto".
type Policy struct {
	Script string

	e  *env.Env
	mu *sync.Mutex
}

func NewPolicy(script string) (*Policy, error) {
	p := &Policy{mu: new(sync.Mutex)}
	if err := p.LoadScript(script); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) LoadScript(script string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := env.NewEnv()
	_, err := vm.Execute(e, nil, script)
	if err != nil {
		return fmt.Errorf("cannot load policy script: %w", err)
	}
	if _, err := e.Get("choose"); err != nil {
		return fmt.Errorf("policy script does not define choose: %w", err)
	}

	p.Script = script
	p.e = e
	return nil
}

// Choose asks the script which of the two preprocessed formats to commit.
func (p *Policy) Choose(ctx context.Context, orig_bits, counts_saved, tree_saved int64) (huffman.HeaderFormat, error) {
	p.mu.Lock()
	e := p.e.DeepCopy()
	p.mu.Unlock()

	var errs []error
	errs = append(errs, e.Define("orig_bits", orig_bits))
	errs = append(errs, e.Define("counts_saved", counts_saved))
	errs = append(errs, e.Define("tree_saved", tree_saved))
	for _, err := range errs {
		if err != nil {
			return 0, err
		}
	}

	result, err := vm.ExecuteContext(ctx, e, nil, "choose(orig_bits, counts_saved, tree_saved)")
	if err != nil {
		return 0, errors.Wrapf(huffman.ErrInvalidConfiguration, "policy script failed: %s", err)
	}

	name, ok := result.(string)
	if !ok {
		return 0, errors.Wrapf(huffman.ErrInvalidConfiguration, "policy returned %T, expected a string", result)
	}
	return huffman.ParseHeaderFormat(name)
}

// vim: ai:ts=8:sw=8:noet:syntax=go
