package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/labels"
	"github.com/ayusman/mudra/internal/store"
)

func handleModels(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: mudra models <add|list|rm|use> [options]")
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open model registry: %w", err)
	}
	defer st.Close()

	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		err = modelsAdd(st, rest)
	case "list":
		err = modelsList(st, os.Stdout)
	case "rm":
		err = modelsRemove(st, rest)
	case "use":
		err = modelsUse(st, rest)
	default:
		err = fmt.Errorf("unknown models command: %s", sub)
	}
	return err
}

func modelsAdd(st *store.Store, args []string) error {
	fs := flag.NewFlagSet("models add", flag.ExitOnError)
	name := fs.String("name", "", "Model name")
	model := fs.String("model", "", "Classifier model path")
	labelsPath := fs.String("labels", "", "Label catalog path")
	description := fs.String("description", "", "Free-form description")
	fs.Parse(args)

	if *name == "" || *model == "" || *labelsPath == "" {
		return errors.New("models add requires -name, -model and -labels")
	}

	modelAbs, err := filepath.Abs(*model)
	if err != nil {
		return err
	}
	labelsAbs, err := filepath.Abs(*labelsPath)
	if err != nil {
		return err
	}

	// Refuse artifacts that would fail at startup.
	cls, scorer, err := classifier.Open(modelAbs, labelsAbs)
	if err != nil {
		return err
	}
	scorer.Close()

	m := &store.Model{
		Name:        *name,
		ModelPath:   modelAbs,
		LabelsPath:  labelsAbs,
		Description: *description,
	}
	if err := st.Models().Create(m); err != nil {
		return err
	}

	fmt.Printf("Registered %s (%d labels) as %s\n", m.Name, cls.Catalog().Len(), m.ID)
	return nil
}

func modelsList(st *store.Store, out io.Writer) error {
	models, err := st.Models().List()
	if err != nil {
		return err
	}
	active, err := st.Settings().Get(store.ActiveModelKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tMODEL\tLABELS\tDESCRIPTION")
	for _, m := range models {
		mark := ""
		if m.Name == active {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, m.Name, m.ModelPath, m.LabelsPath, m.Description)
	}
	return w.Flush()
}

func modelsRemove(st *store.Store, args []string) error {
	fs := flag.NewFlagSet("models rm", flag.ExitOnError)
	name := fs.String("name", "", "Model name")
	fs.Parse(args)

	m, err := st.Models().GetByName(*name)
	if err != nil {
		return fmt.Errorf("model %q: %w", *name, err)
	}
	if err := st.Models().Delete(m.ID); err != nil {
		return err
	}

	if active, err := st.Settings().Get(store.ActiveModelKey); err == nil && active == m.Name {
		if err := st.Settings().Delete(store.ActiveModelKey); err != nil {
			return err
		}
	}

	fmt.Printf("Removed %s\n", m.Name)
	return nil
}

func modelsUse(st *store.Store, args []string) error {
	fs := flag.NewFlagSet("models use", flag.ExitOnError)
	name := fs.String("name", "", "Model name")
	fs.Parse(args)

	if _, err := st.Models().GetByName(*name); err != nil {
		return fmt.Errorf("model %q: %w", *name, err)
	}
	if err := st.Settings().Set(store.ActiveModelKey, *name); err != nil {
		return err
	}

	fmt.Printf("Active model: %s\n", *name)
	return nil
}

func handleLabels(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("labels", flag.ExitOnError)
	path := fs.String("labels", cfg.Classifier.Labels, "Label catalog path")
	fs.Parse(args)

	catalog, err := labels.LoadFile(*path)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}
	for i, name := range catalog.Names() {
		fmt.Printf("%d\t%s\n", i, name)
	}
	return nil
}
