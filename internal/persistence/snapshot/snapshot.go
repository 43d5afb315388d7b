// Package snapshot stores world states as a zstd stream holding one JSON
// header line followed by a gob-encoded SnapshotV1.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/metrics"
	"nations.ai/internal/sim/resources"
	"nations.ai/internal/sim/world"
)

const Version = 1

type Header struct {
	Version     int    `json:"version"`
	RunID       string `json:"run_id,omitempty"`
	WorldDigest string `json:"world_digest"`
	CreatedUnix int64  `json:"created_unix"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	SelfCountry string         `json:"self_country,omitempty"`
	Params      metrics.Params `json:"params"`
	Schedule    []string       `json:"schedule,omitempty"`
	EU          float64        `json:"eu"`

	Countries []CountryV1 `json:"countries"`
}

type CountryV1 struct {
	Name      string         `json:"name"`
	Resources map[string]int `json:"resources"`
}

// FromWorld captures w's countries in name order.
func FromWorld(w *world.World) SnapshotV1 {
	snap := SnapshotV1{
		Header: Header{
			Version:     Version,
			WorldDigest: w.Digest(),
			CreatedUnix: time.Now().Unix(),
		},
	}
	for _, name := range w.Countries() {
		c, _ := w.Country(name)
		snap.Countries = append(snap.Countries, CountryV1{Name: name, Resources: c.Resources.Map()})
	}
	return snap
}

func (s SnapshotV1) ToCountries() []*world.Country {
	out := make([]*world.Country, 0, len(s.Countries))
	for _, c := range s.Countries {
		out = append(out, world.NewCountry(c.Name, resources.FromMap(c.Resources)))
	}
	return out
}

// World rebuilds the captured world and checks it against the header
// digest.
func (s SnapshotV1) World(q world.QualityFunc) (*world.World, error) {
	w, err := world.New(s.ToCountries(), q)
	if err != nil {
		return nil, err
	}
	if s.Header.WorldDigest != "" && w.Digest() != s.Header.WorldDigest {
		return nil, fmt.Errorf("%w: snapshot digest %s does not match its countries (%s)", protocol.ErrInvalidArgument, s.Header.WorldDigest, w.Digest())
	}
	return w, nil
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	br, closeFn, err := open(path)
	if err != nil {
		return snap, err
	}
	defer closeFn()

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("snapshot header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("%w: unsupported snapshot version %d", protocol.ErrInvalidArgument, snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	br, closeFn, err := open(path)
	if err != nil {
		return h, err
	}
	defer closeFn()
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}

func open(path string) (*bufio.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return bufio.NewReaderSize(dec, 256*1024), func() {
		dec.Close()
		_ = f.Close()
	}, nil
}
