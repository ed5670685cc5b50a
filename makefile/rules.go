// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package makefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RulesFile is a YAML file of classification rules, e.g.
//
//	rules:
//	- category: proof
//	  root: tests/cbmc/sources
//	  variable: PROOF_SOURCE
//	- category: project
//	  root: .
//	  variable: SRCDIR
type RulesFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is a rule as written in a rules file.
type RuleConfig struct {
	Category string `yaml:"category"`
	Root     string `yaml:"root"`
	Variable string `yaml:"variable"`
}

// LoadRules loads rules from a YAML file.
// Relative roots are kept relative; see AbsRules.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f RulesFile
	err = yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s: no rules", path)
	}
	var rules []Rule
	var errs []error
	for i, rc := range f.Rules {
		cat, err := ParseCategory(rc.Category)
		if err != nil {
			errs = append(errs, fmt.Errorf("rules[%d]: %w", i, err))
			continue
		}
		if rc.Root == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: empty root", i))
			continue
		}
		if rc.Variable == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: empty variable", i))
			continue
		}
		rules = append(rules, Rule{Category: cat, Root: rc.Root, Variable: rc.Variable})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("rules file %s: %w", path, errors.Join(errs...))
	}
	return rules, nil
}

// AbsRules returns rules with relative roots resolved against base.
func AbsRules(rules []Rule, base string) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !filepath.IsAbs(r.Root) {
			r.Root = filepath.Join(base, r.Root)
		}
		r.Root = filepath.Clean(r.Root)
		out = append(out, r)
	}
	return out
}
