// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package snapshot wraps the frameless serialized form of the streaming
// primitives in a small at-rest container.  The primitives' own binary
// formats deliberately carry no magic, version, or checksum — structural
// parameters live in the receiving object — so anything that stores them
// outside a live process wants a self-describing envelope around the raw
// bytes.  The container is:
//
//	[0..16)  magic
//	[16]     codec (gzip | snappy | raw)
//	[17]     checksum kind (seahash | keyed highwayhash)
//	[18..26) checksum of the uncompressed payload, little-endian
//	[26..)   payload, compressed per the codec
//
// The payload inside is byte-exact MarshalBinary output; reading a snapshot
// and handing the payload to the matching UnmarshalBinary preserves the
// receiver-side compatibility contract unchanged.
package snapshot

import (
	"bytes"
	"io"
	"io/ioutil"

	"blainsmith.com/go/seahash"
	"github.com/golang/snappy"
	"github.com/grailbio/streamstats/wire"
	"github.com/klauspost/compress/gzip"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
)

// Codec identifies the payload compression.
type Codec byte

const (
	// Gzip compresses the payload with gzip (the default).
	Gzip Codec = iota
	// Snappy compresses the payload with snappy.
	Snappy
	// Raw stores the payload uncompressed.
	Raw
)

const (
	hashSeahash byte = iota
	hashHighway
)

var magic = [16]byte{
	'S', 'T', 'R', 'M', 'S', 'T', 'A', 'T',
	0x01, 0x9c, 0x4e, 0x5b, 0xd2, 0x27, 0x6a, 0x31,
}

const headerLen = len(magic) + 2 + wire.SizeU64

var (
	// ErrBadMagic is returned by Read when the input does not start with the
	// snapshot magic.
	ErrBadMagic = errors.New("snapshot: bad magic")
	// ErrBadCodec is returned by Read when the codec byte is unknown.
	ErrBadCodec = errors.New("snapshot: unknown codec")
	// ErrChecksum is returned by Read when the payload checksum does not
	// match the header.
	ErrChecksum = errors.New("snapshot: checksum mismatch")
	// ErrKeyRequired is returned by Read when the snapshot carries a keyed
	// checksum and no key was supplied.
	ErrKeyRequired = errors.New("snapshot: keyed checksum requires a key")
)

// KeySize is the length of a keyed-checksum key.
const KeySize = 32

// Options configures Write and Read.
type Options struct {
	// Codec selects the payload compression on Write; Read takes the codec
	// from the header.
	Codec Codec
	// Key, when non-nil, must be KeySize bytes and switches the payload
	// checksum from seahash to keyed highwayhash.
	Key []byte
}

func checksum(payload []byte, key []byte) (byte, uint64, error) {
	if key == nil {
		return hashSeahash, seahash.Sum64(payload), nil
	}
	if len(key) != KeySize {
		return 0, 0, errors.Errorf("snapshot: key must be %d bytes, got %d", KeySize, len(key))
	}
	return hashHighway, highwayhash.Sum64(payload, key), nil
}

// Write frames payload into w.
func Write(w io.Writer, payload []byte, opts Options) error {
	switch opts.Codec {
	case Gzip, Snappy, Raw:
	default:
		return ErrBadCodec
	}
	kind, sum, err := checksum(payload, opts.Key)
	if err != nil {
		return err
	}

	header := make([]byte, headerLen)
	off := 0
	copy(wire.Cut(&off, header, len(magic)), magic[:])
	wire.Cut(&off, header, 1)[0] = byte(opts.Codec)
	wire.Cut(&off, header, 1)[0] = kind
	wire.PutU64(wire.Cut(&off, header, wire.SizeU64), sum)
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "snapshot: write header")
	}

	switch opts.Codec {
	case Gzip:
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(payload); err != nil {
			return errors.Wrap(err, "snapshot: gzip payload")
		}
		return errors.Wrap(gz.Close(), "snapshot: close gzip payload")
	case Snappy:
		sw := snappy.NewBufferedWriter(w)
		if _, err := sw.Write(payload); err != nil {
			return errors.Wrap(err, "snapshot: snappy payload")
		}
		return errors.Wrap(sw.Close(), "snapshot: close snappy payload")
	case Raw:
		_, err := w.Write(payload)
		return errors.Wrap(err, "snapshot: write payload")
	}
	return ErrBadCodec
}

// Read unframes a snapshot from r and returns the verified payload, ready
// for the matching UnmarshalBinary.
func Read(r io.Reader, opts Options) ([]byte, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "snapshot: read header")
	}
	off := 0
	if !bytes.Equal(wire.Cut(&off, header, len(magic)), magic[:]) {
		return nil, ErrBadMagic
	}
	codec := Codec(wire.Cut(&off, header, 1)[0])
	kind := wire.Cut(&off, header, 1)[0]
	want := wire.U64(wire.Cut(&off, header, wire.SizeU64))

	if kind == hashHighway && opts.Key == nil {
		return nil, ErrKeyRequired
	}

	var payload []byte
	var err error
	switch codec {
	case Gzip:
		gz, gerr := gzip.NewReader(r)
		if gerr != nil {
			return nil, errors.Wrap(gerr, "snapshot: open gzip payload")
		}
		payload, err = ioutil.ReadAll(gz)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	case Snappy:
		payload, err = ioutil.ReadAll(snappy.NewReader(r))
	case Raw:
		payload, err = ioutil.ReadAll(r)
	default:
		return nil, ErrBadCodec
	}
	if err != nil {
		return nil, errors.Wrap(err, "snapshot: read payload")
	}

	var got uint64
	switch kind {
	case hashSeahash:
		got = seahash.Sum64(payload)
	case hashHighway:
		if len(opts.Key) != KeySize {
			return nil, errors.Errorf("snapshot: key must be %d bytes, got %d", KeySize, len(opts.Key))
		}
		got = highwayhash.Sum64(payload, opts.Key)
	default:
		return nil, ErrChecksum
	}
	if got != want {
		return nil, ErrChecksum
	}
	return payload, nil
}
