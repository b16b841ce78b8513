package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/synaptica-ai/maternal-risk/pkg/risk"
	"gopkg.in/yaml.v3"
)

// Concept maps a condition or reading onto the clinical code systems.
type Concept struct {
	Display string `yaml:"display" json:"display"`
	Kind    string `yaml:"kind" json:"kind"`
	SNOMED  string `yaml:"snomed,omitempty" json:"snomed,omitempty"`
	LOINC   string `yaml:"loinc,omitempty" json:"loinc,omitempty"`
	ICD10   string `yaml:"icd10,omitempty" json:"icd10,omitempty"`
	Unit    string `yaml:"unit,omitempty" json:"unit,omitempty"`
}

const (
	KindCondition = "condition"
	KindReading   = "reading"
)

type Catalog struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
}

// Load reads a YAML catalog. Entries in the file replace or extend the
// default concepts; an empty path returns the defaults.
func Load(path string) (Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cat, fmt.Errorf("read terminology catalog: %w", err)
	}
	var file Catalog
	if err := yaml.Unmarshal(content, &file); err != nil {
		return cat, fmt.Errorf("parse terminology catalog: %w", err)
	}
	if len(file.Concepts) == 0 {
		return cat, fmt.Errorf("terminology catalog %s is empty", path)
	}
	for key, concept := range file.Concepts {
		cat.Concepts[strings.ToLower(key)] = concept
	}
	return cat, nil
}

func (c Catalog) Lookup(key string) (Concept, bool) {
	if c.Concepts == nil {
		return Concept{}, false
	}
	concept, ok := c.Concepts[strings.ToLower(key)]
	return concept, ok
}

// Keys returns the concept keys of the given kind, sorted. An empty kind
// matches everything.
func (c Catalog) Keys(kind string) []string {
	keys := make([]string, 0, len(c.Concepts))
	for k, v := range c.Concepts {
		if kind == "" || v.Kind == kind {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Codes returns the ICD-10 codes of the conditions surfaced in a, in the
// same order. Conditions without a catalog entry are skipped.
func (c Catalog) Codes(a *risk.Assessment) []string {
	if a == nil {
		return nil
	}
	codes := []string{}
	for _, d := range a.DetectedConditions {
		if concept, ok := c.Lookup(string(d.Name)); ok && concept.ICD10 != "" {
			codes = append(codes, concept.ICD10)
		}
	}
	return codes
}

func DefaultCatalog() Catalog {
	return Catalog{Concepts: map[string]Concept{
		string(risk.GestationalDiabetes): {
			Display: "Gestational diabetes mellitus",
			Kind:    KindCondition,
			SNOMED:  "11687002",
			ICD10:   "O24.4",
		},
		string(risk.Preeclampsia): {
			Display: "Pre-eclampsia",
			Kind:    KindCondition,
			SNOMED:  "398254007",
			ICD10:   "O14.9",
		},
		string(risk.Anemia): {
			Display: "Anemia complicating pregnancy",
			Kind:    KindCondition,
			ICD10:   "O99.0",
		},
		string(risk.Hypertension): {
			Display: "Gestational hypertension",
			Kind:    KindCondition,
			SNOMED:  "48194001",
			ICD10:   "O13",
		},
		string(risk.PretermLaborRisk): {
			Display: "Preterm labor",
			Kind:    KindCondition,
			SNOMED:  "6383007",
			ICD10:   "O60.0",
		},
		string(risk.FetalGrowthRestriction): {
			Display: "Fetal growth restriction",
			Kind:    KindCondition,
			SNOMED:  "22033007",
			ICD10:   "O36.59",
		},
		string(risk.PlacentalIssues): {
			Display: "Placental disorder",
			Kind:    KindCondition,
			ICD10:   "O43.9",
		},
		"systolic_bp": {
			Display: "Systolic blood pressure",
			Kind:    KindReading,
			LOINC:   "8480-6",
			Unit:    "mm[Hg]",
		},
		"diastolic_bp": {
			Display: "Diastolic blood pressure",
			Kind:    KindReading,
			LOINC:   "8462-4",
			Unit:    "mm[Hg]",
		},
		"blood_sugar": {
			Display: "Glucose [Mass/volume] in Blood",
			Kind:    KindReading,
			LOINC:   "2339-0",
			Unit:    "mg/dL",
		},
		"body_weight": {
			Display: "Body weight",
			Kind:    KindReading,
			LOINC:   "29463-7",
			Unit:    "kg",
		},
		"hemoglobin": {
			Display: "Hemoglobin [Mass/volume] in Blood",
			Kind:    KindReading,
			LOINC:   "718-7",
			Unit:    "g/dL",
		},
		"heart_rate": {
			Display: "Heart rate",
			Kind:    KindReading,
			LOINC:   "8867-4",
			Unit:    "/min",
		},
		"protein_urine": {
			Display: "Protein [Mass/volume] in Urine",
			Kind:    KindReading,
			LOINC:   "2888-6",
			Unit:    "g/L",
		},
		"age": {
			Display: "Age",
			Kind:    KindReading,
			LOINC:   "30525-0",
			Unit:    "a",
		},
		"gestational_week": {
			Display: "Gestational age",
			Kind:    KindReading,
			LOINC:   "18185-9",
			Unit:    "wk",
		},
	}}
}
