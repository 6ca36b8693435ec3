// Package sandbox loads demo and synthetic clinic data into a registry.
// Fixtures are YAML documents; references between records are by patient
// name and staff username.
package sandbox

import (
	_ "embed"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoFixture []byte

type Fixture struct {
	Users        []UserFixture        `yaml:"users"`
	Patients     []PatientFixture     `yaml:"patients"`
	Supplies     []SupplyFixture      `yaml:"supplies"`
	Appointments []AppointmentFixture `yaml:"appointments"`
	Expenses     []ExpenseFixture     `yaml:"expenses"`
}

type UserFixture struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	Surname    string `yaml:"surname"`
	Role       string `yaml:"role"`
	Speciality string `yaml:"speciality,omitempty"`
}

type PatientFixture struct {
	Name    string       `yaml:"name"`
	Age     int          `yaml:"age"`
	Gender  string       `yaml:"gender"`
	Contact string       `yaml:"contact"`
	History []string     `yaml:"history,omitempty"`
	Fees    []FeeFixture `yaml:"fees,omitempty"`
}

type FeeFixture struct {
	Amount      float64 `yaml:"amount"`
	Type        string  `yaml:"type"`
	Description string  `yaml:"description"`
	Date        string  `yaml:"date"`
}

type SupplyFixture struct {
	Name      string  `yaml:"name"`
	Quantity  int     `yaml:"quantity"`
	UnitPrice float64 `yaml:"unit_price"`
	Category  string  `yaml:"category"`
	Unit      string  `yaml:"unit,omitempty"`
}

type AppointmentFixture struct {
	Patient string `yaml:"patient"`
	Doctor  string `yaml:"doctor"`
	Date    string `yaml:"date"`
	Time    string `yaml:"time"`
	About   string `yaml:"about,omitempty"`
	Status  string `yaml:"status,omitempty"`
}

type ExpenseFixture struct {
	Category    string  `yaml:"category"`
	Amount      float64 `yaml:"amount"`
	Description string  `yaml:"description"`
	Date        string  `yaml:"date"`
}

// LoadFixture decodes a YAML fixture. Unknown keys are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	return &f, nil
}

// DemoFixture returns the built-in demo data set.
func DemoFixture() (*Fixture, error) {
	return LoadFixture(bytes.NewReader(demoFixture))
}

// Marshal renders f as YAML.
func (f *Fixture) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encoding fixture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseDay accepts YYYY-MM-DD or an offset in days from now such as "+3d"
// or "-10d".
func parseDay(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "today" {
		return startOfDay(now), nil
	}
	if (s[0] == '+' || s[0] == '-') && strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day offset %q", s)
		}
		return startOfDay(now).AddDate(0, 0, n), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

func parseClock(s string) (time.Duration, error) {
	if s == "" {
		return 9 * time.Hour, nil
	}
	for _, layout := range []string{"15:04", time.TimeOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
