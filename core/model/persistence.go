package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/ezoic/churnpulse/pkg/errors"
	"github.com/ezoic/churnpulse/pkg/fsutil"
)

// SaveModel gob-encodes m into filename. The file is replaced atomically, so a
// failed save leaves any previous model in place.
//
// Example:
//
//	if err := model.SaveModel(p, "artifacts/model.gob"); err != nil {
//	    return err
//	}
func SaveModel(m interface{}, filename string) error {
	return fsutil.WriteFileAtomic(filename, func(w io.Writer) error {
		return SaveModelToWriter(m, w)
	})
}

// SaveModelToWriter gob-encodes m into w.
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModel decodes filename into m, which must be a pointer to the saved type.
// A missing file is reported as a MissingArtifactError.
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewMissingArtifactError("model", filename, err)
		}
		return errors.Wrapf(err, "failed to open file %s", filename)
	}
	defer func() { _ = file.Close() }()

	return LoadModelFromReader(m, file)
}

// LoadModelFromReader decodes r into m.
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
