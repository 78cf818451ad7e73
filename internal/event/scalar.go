package event

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/xerrors"
)

type (
	// U64 decodes a Move u64, which the ledger renders as a JSON string, but tolerates plain numbers.
	U64 uint64

	// Text decodes a Move vector<u8> holding UTF-8, rendered as an array of numbers, or a plain string.
	Text string
)

func (u *U64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return xerrors.New("u64 cannot be null")
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	value, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid u64 %s: %w", data, err)
	}

	*u = U64(value)
	return nil
}

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

// Millis interprets the value as a unix timestamp in milliseconds.
func (u U64) Millis() time.Time {
	return time.UnixMilli(int64(u)).UTC()
}

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return xerrors.Errorf("text must be a string or a byte array: %w", err)
	}

	buf := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return xerrors.Errorf("text byte out of range: %d", v)
		}
		buf[i] = byte(v)
	}

	if !utf8.Valid(buf) {
		return xerrors.New("text is not valid utf-8")
	}

	*t = Text(buf)
	return nil
}

func (t Text) String() string {
	return string(t)
}
