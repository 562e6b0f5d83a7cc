package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"howett.net/plist"
)

// Codec turns slot values into bytes and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec stores slots as indented JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// PlistCodec stores slots as binary property lists, the format used for
// app preferences on Apple platforms.
type PlistCodec struct{}

func (PlistCodec) Name() string { return "plist" }

func (PlistCodec) Marshal(v any) ([]byte, error) {
	return plist.Marshal(v, plist.BinaryFormat)
}

func (PlistCodec) Unmarshal(data []byte, v any) error {
	_, err := plist.Unmarshal(data, v)
	return err
}

// CodecByName resolves a configured codec name.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec{}, nil
	case "plist":
		return PlistCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
