package models

import (
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// StrucStream decodes consecutive struc records of one byte order, such as
// the fields of a load command.
type StrucStream struct {
	Stream io.Reader
	Order  binary.ByteOrder
}

func (s *StrucStream) Unpack(i interface{}) error {
	return errors.WithStack(struc.UnpackWithOrder(s.Stream, i, s.Order))
}

// Skip discards n bytes.
func (s *StrucStream) Skip(n int) error {
	_, err := io.CopyN(io.Discard, s.Stream, int64(n))
	return errors.WithStack(err)
}

// Word reads one 4 or 8 byte unsigned value.
func (s *StrucStream) Word(width int) (uint64, error) {
	switch width {
	case 4:
		var v uint32
		err := s.Unpack(&v)
		return uint64(v), err
	case 8:
		var v uint64
		err := s.Unpack(&v)
		return v, err
	}
	return 0, errors.Errorf("bad word width %d", width)
}
