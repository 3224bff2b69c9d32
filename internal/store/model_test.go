package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestModelRepository_CRUD(t *testing.T) {
	repo := newTestStore(t).Models()

	m := &Model{
		Name:        "asl-v1",
		ModelPath:   "/models/asl.onnx",
		LabelsPath:  "/models/asl.txt",
		Description: "three gesture demo",
	}
	if err := repo.Create(m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := uuid.Parse(m.ID); err != nil {
		t.Errorf("Create() should assign a UUID, got %q", m.ID)
	}

	got, err := repo.GetByID(m.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != m.Name || got.ModelPath != m.ModelPath || got.LabelsPath != m.LabelsPath || got.Description != m.Description {
		t.Errorf("GetByID() = %+v, want %+v", got, m)
	}

	byName, err := repo.GetByName("asl-v1")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if byName.ID != m.ID {
		t.Errorf("GetByName().ID = %s, want %s", byName.ID, m.ID)
	}

	if err := repo.Delete(m.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestModelRepository_KeepsGivenID(t *testing.T) {
	repo := newTestStore(t).Models()

	m := &Model{ID: "fixed-id", Name: "n", ModelPath: "m.json", LabelsPath: "l.txt"}
	if err := repo.Create(m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.ID != "fixed-id" {
		t.Errorf("ID = %s, want fixed-id", m.ID)
	}
}

func TestModelRepository_DuplicateName(t *testing.T) {
	repo := newTestStore(t).Models()

	if err := repo.Create(&Model{Name: "dup", ModelPath: "a.onnx", LabelsPath: "a.txt"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(&Model{Name: "dup", ModelPath: "b.onnx", LabelsPath: "b.txt"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicate", err)
	}
}

func TestModelRepository_Validation(t *testing.T) {
	repo := newTestStore(t).Models()

	tests := []struct {
		name  string
		model Model
	}{
		{"missing name", Model{ModelPath: "m.onnx", LabelsPath: "l.txt"}},
		{"missing model path", Model{Name: "x", LabelsPath: "l.txt"}},
		{"missing labels path", Model{Name: "x", ModelPath: "m.onnx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.model
			if err := repo.Create(&m); err == nil {
				t.Error("Create() should fail")
			}
		})
	}
}

func TestModelRepository_List(t *testing.T) {
	repo := newTestStore(t).Models()

	models, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(models) != 0 {
		t.Errorf("empty registry listed %d models", len(models))
	}

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := repo.Create(&Model{Name: name, ModelPath: name + ".onnx", LabelsPath: name + ".txt"}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	models, err = repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(models) != len(want) {
		t.Fatalf("len(List()) = %d, want %d", len(models), len(want))
	}
	for i, m := range models {
		if m.Name != want[i] {
			t.Errorf("List()[%d].Name = %s, want %s", i, m.Name, want[i])
		}
	}
}

func TestModelRepository_NotFound(t *testing.T) {
	repo := newTestStore(t).Models()

	if _, err := repo.GetByName("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByName() error = %v, want ErrNotFound", err)
	}
}
