package ocrdata

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/unixpickle/anyocr"
)

func TestReadRecords(t *testing.T) {
	data := "filename,Identity\n" +
		"TRAIN_00001.jpg,BALTHAZAR\n" +
		"TRAIN_00002.jpg,\n" +
		"TRAIN_00003.jpg, ZOE \n" +
		"TRAIN_00004.jpg,Amélie\n"
	records, err := ReadRecords(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	expected := []Record{
		{Filename: "TRAIN_00001.jpg", Identity: "BALTHAZAR"},
		{Filename: "TRAIN_00003.jpg", Identity: "ZOE"},
		{Filename: "TRAIN_00004.jpg", Identity: "Amélie"},
	}
	if !reflect.DeepEqual(records, expected) {
		t.Errorf("expected %v but got %v", expected, records)
	}
}

func TestReadRecordsColumnOrder(t *testing.T) {
	data := "\ufeffIDENTITY,EXTRA,FILENAME\nANNA,x,a.jpg\n"
	records, err := ReadRecords(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Filename != "a.jpg" || records[0].Identity != "ANNA" {
		t.Errorf("unexpected records: %v", records)
	}
}

func TestReadRecordsErrors(t *testing.T) {
	for _, data := range []string{"", "FILENAME,LABEL\na.jpg,A\n", "FILENAME,IDENTITY\na.jpg\n"} {
		if _, err := ReadRecords(strings.NewReader(data)); err == nil {
			t.Errorf("data %q: expected an error", data)
		}
	}
}

func TestLoadSplit(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "split.csv")
	data := "FILENAME,IDENTITY\na.jpg,ANNA\nb.jpg,BOB\nc.jpg,CLARA\n"
	if err := os.WriteFile(csvPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	samples, err := LoadSplit(anyocr.Split{CSV: csvPath, ImageDir: "/images", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	expected := SampleList{
		{ImagePath: filepath.Join("/images", "a.jpg"), Label: "ANNA"},
		{ImagePath: filepath.Join("/images", "b.jpg"), Label: "BOB"},
	}
	if !reflect.DeepEqual(samples, expected) {
		t.Errorf("expected %v but got %v", expected, samples)
	}
	if labels := samples.Labels(); !reflect.DeepEqual(labels, []string{"ANNA", "BOB"}) {
		t.Errorf("unexpected labels: %v", labels)
	}

	if _, err := LoadSplit(anyocr.Split{CSV: filepath.Join(dir, "none.csv")}); err == nil {
		t.Error("expected an error for a missing file")
	}
}
