package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

func writeArtifacts(t *testing.T, dir string) (model, labelsPath string) {
	t.Helper()
	model = filepath.Join(dir, "model.json")
	labelsPath = filepath.Join(dir, "labels.txt")
	require.NoError(t, os.WriteFile(model, []byte(`{"weights": [[1, 0], [0, 1]], "bias": [0, 0]}`), 0o644))
	require.NoError(t, os.WriteFile(labelsPath, []byte("fist\npalm\n"), 0o644))
	return model, labelsPath
}

func TestResolveArtifacts_ExplicitPaths(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mudra.db")

	model, labelsPath, err := resolveArtifacts(config.ClassifierConfig{Model: "m.onnx", Labels: "l.txt"}, dbPath)
	require.NoError(t, err)
	assert.Equal(t, "m.onnx", model)
	assert.Equal(t, "l.txt", labelsPath)

	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "explicit paths do not touch the registry")
}

func TestResolveArtifacts_HalfConfigured(t *testing.T) {
	_, _, err := resolveArtifacts(config.ClassifierConfig{Model: "m.onnx"}, filepath.Join(t.TempDir(), "mudra.db"))
	assert.ErrorContains(t, err, "labels")
}

func TestResolveArtifacts_Registry(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mudra.db")
	st, err := store.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Models().Create(&store.Model{Name: "asl", ModelPath: "/m/asl.onnx", LabelsPath: "/m/asl.txt"}))
	require.NoError(t, st.Models().Create(&store.Model{Name: "demo", ModelPath: "/m/demo.json", LabelsPath: "/m/demo.txt"}))
	require.NoError(t, st.Close())

	_, _, err = resolveArtifacts(config.ClassifierConfig{}, dbPath)
	assert.ErrorContains(t, err, "no classifier configured")

	model, labelsPath, err := resolveArtifacts(config.ClassifierConfig{RegistryName: "asl"}, dbPath)
	require.NoError(t, err)
	assert.Equal(t, "/m/asl.onnx", model)
	assert.Equal(t, "/m/asl.txt", labelsPath)

	st, err = store.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Settings().Set(store.ActiveModelKey, "demo"))
	require.NoError(t, st.Close())

	model, _, err = resolveArtifacts(config.ClassifierConfig{}, dbPath)
	require.NoError(t, err)
	assert.Equal(t, "/m/demo.json", model)

	_, _, err = resolveArtifacts(config.ClassifierConfig{RegistryName: "missing"}, dbPath)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestModelsCommands(t *testing.T) {
	dir := t.TempDir()
	model, labelsPath := writeArtifacts(t, dir)

	st, err := store.New(filepath.Join(dir, "mudra.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, modelsAdd(st, []string{"-name", "demo", "-model", model, "-labels", labelsPath, "-description", "two classes"}))
	assert.Error(t, modelsAdd(st, []string{"-name", "demo", "-model", model, "-labels", labelsPath}), "duplicate name")
	assert.Error(t, modelsAdd(st, []string{"-name", "broken", "-model", filepath.Join(dir, "nope.json"), "-labels", labelsPath}))
	assert.Error(t, modelsAdd(st, []string{"-name", "partial"}))

	require.NoError(t, modelsUse(st, []string{"-name", "demo"}))
	assert.Error(t, modelsUse(st, []string{"-name", "ghost"}))

	var out bytes.Buffer
	require.NoError(t, modelsList(st, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "*"), "active model is marked: %q", lines[1])
	assert.Contains(t, lines[1], "two classes")

	require.NoError(t, modelsRemove(st, []string{"-name", "demo"}))
	_, err = st.Settings().Get(store.ActiveModelKey)
	assert.ErrorIs(t, err, store.ErrNotFound, "removing the active model clears the setting")
	assert.Error(t, modelsRemove(st, []string{"-name", "demo"}))
}

func TestDetectorConfig(t *testing.T) {
	dc := detectorConfig(config.DetectorConfig{MaxHands: 2, MinConfidence: 0.6, MinTrackingConfidence: 0.4, Script: "s.py"})
	assert.Equal(t, 2, dc.MaxHands)
	assert.Equal(t, 0.6, dc.MinConfidence)
	assert.Equal(t, 0.4, dc.MinTrackingConf)
	assert.Equal(t, "s.py", dc.Script)
}

func TestHandleRun_StartupFailuresReturnErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad display mode", []string{"-display", "hologram"}, "invalid configuration"},
		{"no classifier", nil, "no classifier configured"},
		{"missing model file", []string{"-model", filepath.Join(dir, "nope.onnx"), "-labels", filepath.Join(dir, "nope.txt")}, "load classifier model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Path = filepath.Join(dir, "mudra.db")
			cfg.Display.Mode = config.DisplayNone

			err := handleRun(cfg, tt.args)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHandleModelsAndLabels_ReturnErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "mudra.db")

	assert.ErrorContains(t, handleModels(cfg, nil), "usage")
	assert.ErrorContains(t, handleModels(cfg, []string{"rename"}), "unknown models command")
	assert.ErrorContains(t, handleLabels(cfg, []string{"-labels", filepath.Join(t.TempDir(), "none.txt")}), "load labels")
}
