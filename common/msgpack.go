package common

import (
	"bytes"
	"errors"

	"github.com/vmihailenco/msgpack/v4"
)

// Codec converts application values to bytes and back. Decode failures must
// be returned, never panic.
type Codec interface {
	Encode(val any) ([]byte, error)
	Decode(data []byte, val any) error
}

type MsgpackCodec struct {
	compress bool
}

func NewMsgpackCodec(compress bool) *MsgpackCodec {
	return &MsgpackCodec{compress: compress}
}

func (c *MsgpackCodec) Encode(val any) ([]byte, error) {
	payload, err := MsgpackMarshal(val)
	if err != nil {
		return nil, err
	}
	if c.compress {
		return Compress(payload), nil
	}
	return payload, nil
}

func (c *MsgpackCodec) Decode(data []byte, val any) error {
	if len(data) == 0 {
		return &DecodeError{Size: 0, Err: errors.New("empty payload")}
	}
	payload := data
	if c.compress {
		payload = Decompress(data)
		if payload == nil {
			return &DecodeError{Size: len(data), Err: errors.New("invalid compression")}
		}
	}
	err := MsgpackUnmarshal(payload, val)
	if err != nil {
		return &DecodeError{Size: len(data), Err: err}
	}
	return nil
}

func MsgpackMarshal(val any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf).UseCompactEncoding(true).SortMapKeys(true)
	err := enc.Encode(val)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func MsgpackUnmarshal(data []byte, val any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("msgpack panic")
		}
	}()
	return msgpack.Unmarshal(data, val)
}
