package papis

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/nicolasshu/zotero2papis/internal/entities"
)

// InfoFileName is the metadata document papis expects in each directory.
const InfoFileName = "info.yaml"

// infoDocument fixes the field vocabulary and ordering of info.yaml. The
// struct-driven marshalling keeps re-runs byte-identical for unchanged input.
type infoDocument struct {
	Ref        string       `yaml:"ref,omitempty"`
	Type       string       `yaml:"type,omitempty"`
	Title      string       `yaml:"title,omitempty"`
	Author     string       `yaml:"author,omitempty"`
	AuthorList []infoAuthor `yaml:"author_list,omitempty"`
	Year       int          `yaml:"year,omitempty"`
	Tags       []string     `yaml:"tags,omitempty"`
	Project    []string     `yaml:"project,omitempty"`
	Files      []string     `yaml:"files,omitempty"`
	Created    string       `yaml:"created,omitempty"`
	Modified   string       `yaml:"modified,omitempty"`
}

type infoAuthor struct {
	FamilyName string `yaml:"family"`
	GivenName  string `yaml:"given"`
}

// InfoWriter serializes one record (plus the filenames that actually made it
// into the directory) as the record's info.yaml.
type InfoWriter struct{}

func NewInfoWriter() *InfoWriter {
	return &InfoWriter{}
}

// Write emits destDir/info.yaml, replacing any previous version atomically.
func (w *InfoWriter) Write(record *entities.Record, files []string, destDir string) error {
	doc := buildInfo(record, files)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata for %s: %w", record.Ref, err)
	}

	dest := filepath.Join(destDir, InfoFileName)
	if err := atomic.WriteFile(dest, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

func buildInfo(record *entities.Record, files []string) infoDocument {
	authors := record.Creators
	if filtered := creatorsWithRole(record.Creators, "author"); len(filtered) > 0 {
		authors = filtered
	}

	authorList := make([]infoAuthor, 0, len(authors))
	for _, c := range authors {
		authorList = append(authorList, infoAuthor{
			FamilyName: c.FamilyName,
			GivenName:  c.GivenName,
		})
	}

	return infoDocument{
		Ref:        record.Ref,
		Type:       record.Type,
		Title:      record.Title,
		Author:     authorString(authors),
		AuthorList: authorList,
		Year:       record.Year,
		Tags:       record.Tags,
		Project:    record.CollectionPath,
		Files:      files,
		Created:    record.Created,
		Modified:   record.Modified,
	}
}

func creatorsWithRole(creators []entities.Creator, role string) []entities.Creator {
	var filtered []entities.Creator
	for _, c := range creators {
		if c.Role == role {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// authorString renders creators as "Family, Given and Family, Given", the
// joined form papis shows in listings.
func authorString(creators []entities.Creator) string {
	names := make([]string, 0, len(creators))
	for _, c := range creators {
		switch {
		case c.FamilyName != "" && c.GivenName != "":
			names = append(names, fmt.Sprintf("%s, %s", c.FamilyName, c.GivenName))
		case c.FamilyName != "":
			names = append(names, c.FamilyName)
		case c.GivenName != "":
			names = append(names, c.GivenName)
		}
	}
	return strings.Join(names, " and ")
}
