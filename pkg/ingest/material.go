package ingest

import (
	"path/filepath"
	"strings"
)

type MaterialType string

const (
	MaterialRubric     MaterialType = "rubric"
	MaterialTestCases  MaterialType = "test_cases"
	MaterialAssignment MaterialType = "assignment"
	MaterialGeneral    MaterialType = "general"
)

var materialTerms = []struct {
	kind  MaterialType
	terms []string
}{
	{MaterialRubric, []string{"rubric", "grading", "criteria"}},
	{MaterialTestCases, []string{"test", "spec", "case"}},
	{MaterialAssignment, []string{"assign", "hw", "project"}},
}

// ClassifyMaterial guesses what kind of course material a file is from its name.
func ClassifyMaterial(fileName string) MaterialType {
	lower := strings.ToLower(filepath.Base(fileName))
	for _, m := range materialTerms {
		for _, term := range m.terms {
			if strings.Contains(lower, term) {
				return m.kind
			}
		}
	}
	return MaterialGeneral
}

// FileInfo describes an uploaded file
type FileInfo struct {
	FileName     string       `json:"file_name"`
	FileType     string       `json:"file_type"`
	MaterialType MaterialType `json:"material_type"`
}

func Describe(fileName string) FileInfo {
	base := filepath.Base(fileName)
	return FileInfo{
		FileName:     base,
		FileType:     strings.ToLower(filepath.Ext(base)),
		MaterialType: ClassifyMaterial(base),
	}
}
