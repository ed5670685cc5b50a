// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package builddb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedExt is the file extension of a zstd compressed database.
const CompressedExt = ".zst"

// Marshal returns the JSON document of the database.
func (db *DB) Marshal() ([]byte, error) {
	buf, err := json.MarshalIndent(db, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

// Unmarshal parses a JSON document of a database.
func Unmarshal(buf []byte) (*DB, error) {
	db := New("")
	err := json.Unmarshal(buf, db)
	if err != nil {
		return nil, err
	}
	if db.Files == nil {
		db.Files = make(map[string]*FileEntry)
	}
	for path, e := range db.Files {
		if e == nil {
			return nil, fmt.Errorf("file %s: null entry", path)
		}
		if e.Includes == nil {
			e.Includes = []string{}
		}
		if e.Defines == nil {
			e.Defines = []string{}
		}
		if e.Functions == nil {
			e.Functions = Functions{}
		}
		for fn, calls := range e.Functions {
			if calls == nil {
				e.Functions[fn] = map[string]*string{}
			}
		}
	}
	return db, nil
}

// Save writes the database to path, zstd compressed if path ends with
// CompressedExt. The file is replaced atomically.
func (db *DB) Save(path string) error {
	buf, err := db.Marshal()
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, CompressedExt) {
		var b bytes.Buffer
		w, err := zstd.NewWriter(&b)
		if err != nil {
			return err
		}
		_, err = w.Write(buf)
		if err != nil {
			w.Close()
			return err
		}
		err = w.Close()
		if err != nil {
			return err
		}
		buf = b.Bytes()
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpname := f.Name()
	err = f.Chmod(0644)
	if err == nil {
		_, err = f.Write(buf)
	}
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpname)
		return fmt.Errorf("write %s: %w", path, err)
	}
	err = os.Rename(tmpname, path)
	if err != nil {
		os.Remove(tmpname)
		return err
	}
	return nil
}

// Load reads the database saved at path.
func Load(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, CompressedExt) {
		rd, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer rd.Close()
		r = rd
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	db, err := Unmarshal(buf)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return db, nil
}
