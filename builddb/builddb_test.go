// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package builddb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/arpa/o11y/diag"
)

func strp(s string) *string { return &s }

func TestMergeFunctions(t *testing.T) {
	db := New("/src")
	db.AddIncludes("/src/a.c", []string{"/src/inc"})
	db.AddDefines("/src/a.c", []string{"FOO=1"})
	if db.AddFile("/src/a.c") {
		t.Errorf("AddFile(/src/a.c)=true for known file; want false")
	}
	db.AddFile("/src/idle.c")

	var d diag.Diagnostics
	err := db.MergeFunctions(map[string]map[string]map[string]string{
		"/src/a.c": {
			"main": {"helper": "/src/b.c", "printf": ""},
		},
		"/src/b.c": {
			"helper": {},
		},
		"/src/b.h": {
			"inline_fn": {},
		},
	}, &d)
	if err != nil {
		t.Fatalf("MergeFunctions=%v; want nil error", err)
	}

	want := map[string]*FileEntry{
		"/src/a.c": {
			Name:     "a.c",
			Includes: []string{"/src/inc"},
			Defines:  []string{"FOO=1"},
			Functions: Functions{
				"main": {"helper": strp("/src/b.c"), "printf": nil},
			},
		},
		"/src/b.c": {
			Name:      "b.c",
			Includes:  []string{},
			Defines:   []string{},
			Functions: Functions{"helper": {}},
		},
		"/src/b.h": {
			Name:      "b.h",
			Includes:  []string{},
			Defines:   []string{},
			Functions: Functions{"inline_fn": {}},
		},
		"/src/idle.c": {
			Name:      "idle.c",
			Includes:  []string{},
			Defines:   []string{},
			Functions: Functions{},
		},
	}
	if diff := cmp.Diff(want, db.Files); diff != "" {
		t.Errorf("Files diff -want +got:\n%s", diff)
	}
	wantDiag := []diag.Entry{
		{Severity: diag.Info, Message: "source file </src/b.c> not found in build database. Adding."},
		{Severity: diag.Debug, Message: "header </src/b.h> not found in build database. Adding."},
	}
	if diff := cmp.Diff(wantDiag, d.Entries()); diff != "" {
		t.Errorf("diagnostics diff -want +got:\n%s", diff)
	}
}

func TestMergeFunctions_NotSource(t *testing.T) {
	db := New("/src")
	err := db.MergeFunctions(map[string]map[string]map[string]string{
		"/src/a.cc": {"main": {}},
	}, nil)
	if err == nil {
		t.Errorf("MergeFunctions(.cc)=nil; want error")
	}
}

func TestSaveLoad(t *testing.T) {
	db := New("/src")
	db.AddIncludes("/src/a.c", []string{"/src/inc", "/usr/include"})
	db.AddDefines("/src/a.c", []string{"FOO=1", "BAR"})
	db.AddFile("/src/empty.h")
	err := db.MergeFunctions(map[string]map[string]map[string]string{
		"/src/a.c": {
			"main":   {"helper": "/src/b.c", "nondet_int": ""},
			"helper": {},
		},
		"/src/b.c": {"helper": {"memcpy": ""}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	for _, name := range []string{"internal_rep.json", "internal_rep.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			err := db.Save(path)
			if err != nil {
				t.Fatalf("Save(%q)=%v; want nil error", path, err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load(%q)=_, %v; want nil error", path, err)
			}
			if diff := cmp.Diff(db, got); diff != "" {
				t.Errorf("Load(Save(db)) diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestMarshal(t *testing.T) {
	db := New("/src")
	db.AddFile("/src/a.c")
	err := db.MergeFunctions(map[string]map[string]map[string]string{
		"/src/a.c": {"main": {"foo": ""}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := db.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	want := `{
    "root": "/src",
    "files": {
        "/src/a.c": {
            "name": "a.c",
            "includes": [],
            "defines": [],
            "functions": {
                "main": {
                    "foo": null
                }
            }
        }
    }
}
`
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("Marshal diff -want +got:\n%s", diff)
	}
}

func TestUnmarshal_Nulls(t *testing.T) {
	db, err := Unmarshal([]byte(`{"root": "/src", "files": {"/src/a.c": {"name": "a.c", "functions": {"main": null}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	want := &DB{
		Root: "/src",
		Files: map[string]*FileEntry{
			"/src/a.c": {
				Name:      "a.c",
				Includes:  []string{},
				Defines:   []string{},
				Functions: Functions{"main": {}},
			},
		},
	}
	if diff := cmp.Diff(want, db); diff != "" {
		t.Errorf("Unmarshal diff -want +got:\n%s", diff)
	}

	_, err = Unmarshal([]byte(`{"root": "/src", "files": {"/src/a.c": null}}`))
	if err == nil {
		t.Errorf("Unmarshal(null entry)=_, nil; want error")
	}
}

func TestLoad_NotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing)=_, %v; want %v", err, os.ErrNotExist)
	}
}
