package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
)

var inlinePattern = regexp.MustCompile(`%inline *\("([^"]*)"\)`)

// Inline replaces each '%inline("NAME")' with the contents of
// find(NAME) as a quoted string, which is a valid scalar in both JSON
// and YAML.
func Inline(bs []byte, find func(string) ([]byte, error)) ([]byte, error) {
	var problem error
	acc := inlinePattern.ReplaceAllFunc(bs, func(match []byte) []byte {
		if problem != nil {
			return match
		}
		name := string(inlinePattern.FindSubmatch(match)[1])
		content, err := find(name)
		if err != nil {
			problem = err
			return match
		}
		js, err := json.Marshal(string(content))
		if err != nil {
			problem = err
			return match
		}
		return js
	})
	if problem != nil {
		return nil, problem
	}
	return acc, nil
}

// ReadFileWithInlines reads the file and inlines names relative to
// its directory.
func ReadFileWithInlines(filename string) ([]byte, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filename)
	return Inline(bs, func(name string) ([]byte, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		return os.ReadFile(name)
	})
}
