package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/guarzo/ebaytracker/internal/config"
	"github.com/guarzo/ebaytracker/internal/model"
)

// searchFile is the YAML shape for bulk search import/export.
type searchFile struct {
	Searches []searchDef `yaml:"searches"`
}

type searchDef struct {
	Name    string                 `yaml:"name"`
	Query   string                 `yaml:"query,omitempty"`
	Filters map[string]interface{} `yaml:"filters,omitempty"`
}

func cmdImport(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("import requires a YAML file path")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	var file searchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	if len(file.Searches) == 0 {
		return fmt.Errorf("%s contains no searches", args[0])
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	added, skipped := 0, 0
	for _, def := range file.Searches {
		if def.Name == "" {
			return fmt.Errorf("search entry missing a name")
		}
		existing, err := db.GetSearchByName(def.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			fmt.Printf("Skipping %s (already exists)\n", def.Name)
			skipped++
			continue
		}

		query := def.Query
		if query == "" {
			query = def.Name
		}
		search := model.Search{Name: def.Name, Query: query}
		if len(def.Filters) > 0 {
			search.Filters = model.Filters(def.Filters)
		}
		if _, err := db.AddSearch(search); err != nil {
			return err
		}
		fmt.Printf("Added %s\n", def.Name)
		added++
	}

	fmt.Printf("\nImported %d searches (%d skipped)\n", added, skipped)
	return nil
}

func cmdExport(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("export requires a YAML file path")
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	searches, err := db.AllSearches()
	if err != nil {
		return err
	}
	if len(searches) == 0 {
		return fmt.Errorf("no searches to export")
	}

	file := searchFile{}
	for _, search := range searches {
		def := searchDef{Name: search.Name}
		if search.Query != search.Name {
			def.Query = search.Query
		}
		if len(search.Filters) > 0 {
			def.Filters = search.Filters
		}
		file.Searches = append(file.Searches, def)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal searches: %w", err)
	}
	if err := os.WriteFile(args[0], data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}

	fmt.Printf("Exported %d searches to %s\n", len(file.Searches), args[0])
	return nil
}
