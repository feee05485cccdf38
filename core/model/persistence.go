package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// SaveModel gob-encodes a fitted model to w.
func SaveModel(m any, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "encode model")
	}
	return nil
}

// LoadModel decodes a model previously written by SaveModel into m, which
// must be a pointer to the same concrete type.
func LoadModel(m any, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "decode model")
	}
	return nil
}

// SaveModelFile writes m to path, creating parent directories.
func SaveModelFile(m any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewPersistError(path, "mkdir", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewPersistError(path, "create", err)
	}
	if err := SaveModel(m, f); err != nil {
		_ = f.Close()
		return errors.NewPersistError(path, "encode", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewPersistError(path, "close", err)
	}
	return nil
}

// LoadModelFile reads a model written by SaveModelFile.
func LoadModelFile(m any, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewDataLoadError(path, "open model", err)
	}
	defer f.Close()

	if err := LoadModel(m, f); err != nil {
		return errors.NewDataLoadError(path, "decode model", err)
	}
	return nil
}
