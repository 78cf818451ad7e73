package fixtures

import (
	"encoding/json"

	"golang.org/x/xerrors"
)

func ReadFile(pathToFile string) ([]byte, error) {
	return FixturesFS.ReadFile(pathToFile)
}

func MustReadFile(pathToFile string) []byte {
	data, err := ReadFile(pathToFile)
	if err != nil {
		panic(err)
	}

	return data
}

// UnmarshalJSON decodes a fixture into out.
func UnmarshalJSON(pathToFile string, out any) error {
	data, err := ReadFile(pathToFile)
	if err != nil {
		return xerrors.Errorf("failed to read fixture %v: %w", pathToFile, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return xerrors.Errorf("failed to unmarshal fixture %v: %w", pathToFile, err)
	}

	return nil
}

// MustRawMessage returns the fixture as a json.RawMessage, e.g. to stub a JSON-RPC result.
func MustRawMessage(pathToFile string) json.RawMessage {
	return json.RawMessage(MustReadFile(pathToFile))
}
