package loader

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

// Format populates a Binary from raw file bytes. Load returns
// models.ErrUnrecognized when the bytes do not carry the format's signature,
// and a wrapped models.ErrMalformed or models.ErrNotSupported when they do but
// cannot be parsed.
type Format interface {
	Name() string
	Load(raw []byte) (*models.Binary, error)
}

// LoaderBase carries the fields every format fills the same way.
type LoaderBase struct {
	typ    models.Type
	arch   models.Arch
	endian models.Endian
	entry  uint64
}

func (l *LoaderBase) binary(raw []byte) *models.Binary {
	return &models.Binary{
		Raw:    raw,
		Type:   l.typ,
		Arch:   l.arch,
		Endian: l.endian,
		Entry:  l.entry,
	}
}

func malformed(format string, err error) error {
	return errors.Wrapf(models.ErrMalformed, "%s: %v", format, err)
}

func malformedf(format, msg string, args ...interface{}) error {
	return errors.Wrapf(models.ErrMalformed, "%s: %s", format, fmt.Sprintf(msg, args...))
}

// catchPanic turns a parser panic on hostile input into a malformed error.
func catchPanic(format string, err *error) {
	if r := recover(); r != nil {
		*err = malformedf(format, "parser panic: %v", r)
	}
}
