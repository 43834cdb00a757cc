package metric

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultElevatedBand is the early-warning band just above the upper
// reference bound: a value exceeding the bound by no more than 10% is
// reported as elevated rather than high. Individual entries may override it.
const DefaultElevatedBand = 0.10

// ThresholdEntry is the static per-metric configuration: the normal range
// used when a report carries no parseable reference range, optional
// critical cut-offs that escalate any status to critical, and the
// specialist mapping used by the recommender.
type ThresholdEntry struct {
	NormalLow      float64  `json:"normal_low"`
	NormalHigh     float64  `json:"normal_high"`
	CriticalLow    *float64 `json:"critical_low,omitempty"`
	CriticalHigh   *float64 `json:"critical_high,omitempty"`
	ElevatedBand   float64  `json:"elevated_band,omitempty"`
	SpecialistType string   `json:"specialist_type"`
	ConditionLabel string   `json:"condition_label"`
}

// Table is the immutable threshold lookup built once at startup.
type Table struct {
	entries map[string]ThresholdEntry
	aliases map[string]string
}

// Canonical normalizes a reported metric name to its table key, resolving
// common lab-report aliases ("hgb" -> "hemoglobin").
func (t *Table) Canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	if canon, ok := t.aliases[key]; ok {
		return canon
	}
	return key
}

// Lookup returns the entry for a metric name, resolving aliases.
func (t *Table) Lookup(name string) (ThresholdEntry, bool) {
	e, ok := t.entries[t.Canonical(name)]
	return e, ok
}

// Load builds the threshold table from the built-in defaults, merging
// overrides from the given JSON file when path is non-empty. The file maps
// canonical metric names to ThresholdEntry objects. A missing table is a
// configuration error and fails startup.
func Load(path string) (*Table, error) {
	t := defaultTable()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thresholds file: %w", err)
	}
	var overrides map[string]ThresholdEntry
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse thresholds file %s: %w", path, err)
	}
	for name, e := range overrides {
		if e.ElevatedBand == 0 {
			e.ElevatedBand = DefaultElevatedBand
		}
		t.entries[t.Canonical(name)] = e
	}
	return t, nil
}

func fptr(v float64) *float64 { return &v }

// defaultTable covers the standard chemistry/CBC panel. Ranges and critical
// cut-offs follow common adult reference intervals; units match the ones
// the ingestion layer reports (mmol/L, U/L, g/L, etc.).
func defaultTable() *Table {
	entries := map[string]ThresholdEntry{
		"glucose": {
			NormalLow: 3.9, NormalHigh: 6.1,
			CriticalLow: fptr(2.8), CriticalHigh: fptr(11.0),
			SpecialistType: "Endocrinologist", ConditionLabel: "Glucose Abnormality",
		},
		"glycated_hemoglobin": {
			NormalLow: 4.0, NormalHigh: 6.0,
			CriticalHigh:   fptr(9.0),
			SpecialistType: "Endocrinologist", ConditionLabel: "Elevated HbA1c",
		},
		"thyroid_stimulating_hormone": {
			NormalLow: 0.4, NormalHigh: 4.0,
			SpecialistType: "Endocrinologist", ConditionLabel: "Thyroid Dysfunction",
		},
		"alt": {
			NormalLow: 7, NormalHigh: 56,
			CriticalHigh:   fptr(200),
			SpecialistType: "Gastroenterologist", ConditionLabel: "Elevated Liver Enzymes",
		},
		"ast": {
			NormalLow: 10, NormalHigh: 40,
			CriticalHigh:   fptr(200),
			SpecialistType: "Gastroenterologist", ConditionLabel: "Elevated Liver Enzymes",
		},
		"alp": {
			NormalLow: 44, NormalHigh: 147,
			SpecialistType: "Gastroenterologist", ConditionLabel: "Elevated Alkaline Phosphatase",
		},
		"ggt": {
			NormalLow: 9, NormalHigh: 48,
			SpecialistType: "Gastroenterologist", ConditionLabel: "Elevated Gamma-GT",
		},
		"total_bilirubin": {
			NormalLow: 3, NormalHigh: 21,
			SpecialistType: "Gastroenterologist", ConditionLabel: "Elevated Bilirubin",
		},
		"creatinine": {
			NormalLow: 60, NormalHigh: 110,
			CriticalHigh:   fptr(300),
			SpecialistType: "Nephrologist", ConditionLabel: "Creatinine Abnormality",
		},
		"urea": {
			NormalLow: 2.5, NormalHigh: 7.1,
			SpecialistType: "Nephrologist", ConditionLabel: "Elevated Urea",
		},
		"hemoglobin": {
			NormalLow: 120, NormalHigh: 160,
			CriticalLow:    fptr(70),
			SpecialistType: "Hematologist", ConditionLabel: "Hemoglobin Abnormality",
		},
		"white_blood_cells": {
			NormalLow: 4.0, NormalHigh: 11.0,
			SpecialistType: "Hematologist", ConditionLabel: "White Blood Cell Abnormality",
		},
		"platelets": {
			NormalLow: 150, NormalHigh: 400,
			CriticalLow:    fptr(50),
			SpecialistType: "Hematologist", ConditionLabel: "Platelet Abnormality",
		},
		"international_normalized_ratio": {
			NormalLow: 0.8, NormalHigh: 1.2,
			CriticalHigh:   fptr(4.5),
			SpecialistType: "Hematologist", ConditionLabel: "Coagulation Abnormality",
		},
		"total_cholesterol": {
			NormalLow: 3.0, NormalHigh: 5.2,
			SpecialistType: "Cardiologist", ConditionLabel: "Cholesterol Abnormality",
		},
		"ldl_cholesterol": {
			NormalLow: 1.5, NormalHigh: 3.4,
			SpecialistType: "Cardiologist", ConditionLabel: "Elevated LDL Cholesterol",
		},
		"hdl_cholesterol": {
			NormalLow: 1.0, NormalHigh: 2.2,
			SpecialistType: "Cardiologist", ConditionLabel: "HDL Cholesterol Abnormality",
		},
		"triglycerides": {
			NormalLow: 0.5, NormalHigh: 1.7,
			SpecialistType: "Cardiologist", ConditionLabel: "Elevated Triglycerides",
		},
		"c_reactive_protein": {
			NormalLow: 0, NormalHigh: 5,
			SpecialistType: "Internal Medicine", ConditionLabel: "Elevated Inflammatory Markers",
		},
	}
	for k, e := range entries {
		if e.ElevatedBand == 0 {
			e.ElevatedBand = DefaultElevatedBand
			entries[k] = e
		}
	}

	aliases := map[string]string{
		"alanine_aminotransferase":   "alt",
		"alat":                       "alt",
		"aspartate_aminotransferase": "ast",
		"asat":                       "ast",
		"alkaline_phosphatase":       "alp",
		"gamma_glutamyl_transferase": "ggt",
		"ggtp":                       "ggt",
		"blood_glucose":              "glucose",
		"sugar":                      "glucose",
		"hba1c":                      "glycated_hemoglobin",
		"cholesterol":                "total_cholesterol",
		"ldl":                        "ldl_cholesterol",
		"low_density_lipoprotein":    "ldl_cholesterol",
		"hdl":                        "hdl_cholesterol",
		"high_density_lipoprotein":   "hdl_cholesterol",
		"serum_creatinine":           "creatinine",
		"hgb":                        "hemoglobin",
		"hb":                         "hemoglobin",
		"wbc":                        "white_blood_cells",
		"leukocytes":                 "white_blood_cells",
		"plt":                        "platelets",
		"thrombocytes":               "platelets",
		"tsh":                        "thyroid_stimulating_hormone",
		"crp":                        "c_reactive_protein",
		"inr":                        "international_normalized_ratio",
		"bilirubin":                  "total_bilirubin",
	}

	return &Table{entries: entries, aliases: aliases}
}
