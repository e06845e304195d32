/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package validator

import (
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"log"
)

// EventWriter stores a stream of events.
type EventWriter interface {
	Encode(ev Event) error
	Close() error
}

// EventReader reads back a stream written by an EventWriter. It returns io.EOF at the end.
type EventReader interface {
	Decode(ev *Event) error
}

// NewEventWriter returns a JSON line writer or, when compressed is set, a gzip
// stream of fixed size big-endian records.
func NewEventWriter(w io.Writer, compressed bool) EventWriter {
	if compressed {
		return &binaryEncoder{writer: gzip.NewWriter(w)}
	}
	return &jsonEncoder{json.NewEncoder(w)}
}

func NewEventReader(r io.Reader, compressed bool) (EventReader, error) {
	if compressed {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return &binaryDecoder{zr}, nil
	}
	return &jsonDecoder{json.NewDecoder(r)}, nil
}

type jsonEncoder struct {
	*json.Encoder
}

func (enc *jsonEncoder) Encode(ev Event) error {
	return enc.Encoder.Encode(ev)
}

func (enc *jsonEncoder) Close() error {
	return nil
}

type jsonDecoder struct {
	*json.Decoder
}

func (dec *jsonDecoder) Decode(ev *Event) error {
	return dec.Decoder.Decode(ev)
}

type binaryEncoder struct {
	writer *gzip.Writer
}

func (enc *binaryEncoder) Encode(ev Event) error {
	return binary.Write(enc.writer, binary.BigEndian, &ev)
}

func (enc *binaryEncoder) Close() error {
	if err := enc.writer.Close(); err != nil {
		log.Print(err)
		return err
	}
	return nil
}

type binaryDecoder struct {
	reader *gzip.Reader
}

func (dec *binaryDecoder) Decode(ev *Event) error {
	err := binary.Read(dec.reader, binary.BigEndian, ev)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		log.Print("truncated event stream")
		return io.EOF
	}
	return err
}
