package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Record
		wantErr bool
	}{
		{
			name:  "plain",
			input: "km,price\n240000,3650\n139800,3800\n",
			want:  []Record{{Km: 240000, Price: 3650}, {Km: 139800, Price: 3800}},
		},
		{
			name:  "swapped columns and extra column",
			input: "price,model,km\n5000,a,100000\n",
			want:  []Record{{Km: 100000, Price: 5000}},
		},
		{
			name:  "byte order mark",
			input: "\ufeffkm,price\n1,2\n",
			want:  []Record{{Km: 1, Price: 2}},
		},
		{
			name:  "header only",
			input: "km,price\n",
			want:  []Record{},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing column",
			input:   "km,cost\n1,2\n",
			wantErr: true,
		},
		{
			name:    "not a number",
			input:   "km,price\n1,abc\n",
			wantErr: true,
		},
		{
			name:    "nan",
			input:   "km,price\nNaN,2\n",
			wantErr: true,
		},
		{
			name:    "ragged row",
			input:   "km,price\n1,2,3\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input), "test.csv")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Read() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var dataErr *DataError
				if !errors.As(err, &dataErr) {
					t.Fatalf("expected *DataError, got %T", err)
				}
				return
			}
			if got.Len() != len(tt.want) {
				t.Fatalf("expected %d records, got %d", len(tt.want), got.Len())
			}
			for i, r := range tt.want {
				if got.Records[i] != r {
					t.Errorf("record %d: expected %+v, got %+v", i, r, got.Records[i])
				}
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected *DataError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("km,price\n10,20\n30,40\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := File(path).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	km := ds.Km()
	prices := ds.Prices()
	if len(km) != 2 || km[1] != 30 || prices[0] != 20 {
		t.Fatalf("unexpected columns: km=%v price=%v", km, prices)
	}
}

func TestNewLengthMismatch(t *testing.T) {
	if _, err := New([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected error for mismatched columns")
	}
}
