package sbmark

import (
	"encoding/json"
	"os"
)

func ToJson(report Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

func FromJsonFile(jsonFile string) (*Report, error) {
	jsonData, err := os.ReadFile(jsonFile)
	if err != nil {
		return nil, err
	}
	return FromJsonByteArray(jsonData)
}

func FromJsonByteArray(jsonData []byte) (*Report, error) {
	r := &Report{}
	err := json.Unmarshal(jsonData, r)
	return r, err
}
