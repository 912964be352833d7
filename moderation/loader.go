package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"folio-chat/errors"
)

//go:embed words/*.txt
var embeddedWords embed.FS

// WordList is the merged content of one directory of dictionaries, one file per language.
type WordList struct {
	Words     []string
	Languages []string
}

// LoadEmbedded loads the dictionaries shipped with the binary.
func LoadEmbedded() (WordList, error) {
	return Load(embeddedWords, "words")
}

// Load reads every .txt file of dir, one word per line, and deduplicates the result.
func Load(fsys fs.FS, dir string) (WordList, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return WordList{}, err
	}

	var languages []string
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			return WordList{}, errors.ErrOnlyCensoredFiles
		}
		if !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return WordList{}, err
		}
		// Scanner handles both \n and \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return WordList{}, err
		}
	}
	if len(unique) == 0 {
		return WordList{}, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	sort.Strings(words)
	return WordList{Words: words, Languages: languages}, nil
}
