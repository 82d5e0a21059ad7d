package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/guarzo/ebaytracker/internal/analyzer"
	"github.com/guarzo/ebaytracker/internal/cache"
	"github.com/guarzo/ebaytracker/internal/category"
	"github.com/guarzo/ebaytracker/internal/config"
	"github.com/guarzo/ebaytracker/internal/ebay"
	"github.com/guarzo/ebaytracker/internal/model"
	"github.com/guarzo/ebaytracker/internal/pipeline"
	"github.com/guarzo/ebaytracker/internal/report"
	"github.com/guarzo/ebaytracker/internal/scheduler"
	"github.com/guarzo/ebaytracker/internal/store"
)

const genderPrefKey = "gender_pref"

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()
	command, args := os.Args[1], os.Args[2:]

	var err error
	switch command {
	case "add":
		err = cmdAdd(cfg, args)
	case "list":
		err = cmdList(cfg)
	case "remove":
		err = cmdRemove(cfg, args)
	case "status":
		err = cmdStatus(cfg)
	case "fetch":
		err = cmdFetch(cfg, args)
	case "analyze":
		err = cmdAnalyze(cfg, args)
	case "categories":
		err = cmdCategories(cfg, args)
	case "import":
		err = cmdImport(cfg, args)
	case "export":
		err = cmdExport(cfg, args)
	case "watch":
		err = cmdWatch(cfg, args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func usage() {
	fmt.Println(`ebaytracker - track eBay sold listings and predict prices

Usage:
  ebaytracker add <name> [flags]       Add a search to track
  ebaytracker list                     List tracked searches
  ebaytracker remove <name>            Remove a search and its listings
  ebaytracker status                   Show proxy and database status
  ebaytracker fetch [name] [flags]     Fetch new listings from eBay
  ebaytracker analyze <name> [flags]   Show statistics and predictions
  ebaytracker categories [flags]       Browse the category taxonomy
  ebaytracker import <file.yaml>       Bulk-add searches from YAML
  ebaytracker export <file.yaml>       Write tracked searches to YAML
  ebaytracker watch [flags]            Fetch on a cron schedule`)
}

func openStore(cfg config.Config) (*store.Store, error) {
	return store.New(cfg.DBPath)
}

func newRunner(cfg config.Config, db *store.Store, pages int) (*pipeline.Runner, error) {
	pageCache, err := cache.New(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}
	fetcher, err := ebay.NewFetcher(cfg.ProxyURL, pageCache, cfg.Debug)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(db, fetcher, pages, cfg.Debug), nil
}

func cmdAdd(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	query := fs.String("query", "", "eBay search query (defaults to name)")
	condition := fs.String("condition", "", "Item condition filter (new, used)")
	minPrice := fs.Float64("min-price", 0, "Minimum price filter")
	maxPrice := fs.Float64("max-price", 0, "Maximum price filter")
	categoryID := fs.Int("category", 0, "eBay category id")
	color := fs.String("color", "", "Color facet (comma-separated for multiple)")
	size := fs.String("size", "", "Size facet (comma-separated for multiple)")
	inseam := fs.String("inseam", "", "Inseam facet (comma-separated for multiple)")
	sizeType := fs.String("size-type", "", "Size type facet (comma-separated for multiple)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("add requires a search name")
	}
	name := fs.Arg(0)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if existing, err := db.GetSearchByName(name); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("search %q already exists", name)
	}

	filters := model.Filters{}
	if *condition != "" {
		filters["condition"] = *condition
	}
	if *minPrice > 0 {
		filters["min_price"] = *minPrice
	}
	if *maxPrice > 0 {
		filters["max_price"] = *maxPrice
	}
	if *categoryID > 0 {
		filters["category"] = *categoryID
	}
	for key, value := range map[string]string{
		"color":     *color,
		"size":      *size,
		"inseam":    *inseam,
		"size_type": *sizeType,
	} {
		if value == "" {
			continue
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) == 1 {
			filters[key] = parts[0]
		} else {
			filters[key] = parts
		}
	}
	if len(filters) == 0 {
		filters = nil
	}

	searchQuery := *query
	if searchQuery == "" {
		searchQuery = name
	}

	if _, err := db.AddSearch(model.Search{Name: name, Query: searchQuery, Filters: filters}); err != nil {
		return err
	}

	fmt.Printf("Added search: %s\n", name)
	if len(filters) > 0 {
		fmt.Printf("  Filters: %s\n", filters.Describe())
	}
	return nil
}

func cmdList(cfg config.Config) error {
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
		fmt.Println("No searches tracked yet. Use 'add' to create one.")
		return nil
	}

	fmt.Printf("%-24s %-32s %9s  %s\n", "NAME", "QUERY", "LISTINGS", "LAST FETCHED")
	for _, search := range searches {
		count, err := db.ListingCount(search.ID)
		if err != nil {
			return err
		}
		query := "-"
		if search.Query != search.Name {
			query = search.Query
		}
		lastFetched := "Never"
		if search.LastFetchedAt != nil {
			lastFetched = search.LastFetchedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-24s %-32s %9d  %s\n", search.Name, query, count, lastFetched)
	}
	return nil
}

func cmdRemove(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("remove requires a search name")
	}
	name := args[0]

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	search, err := db.GetSearchByName(name)
	if err != nil {
		return err
	}
	if search == nil {
		return fmt.Errorf("search %q not found", name)
	}

	count, err := db.ListingCount(search.ID)
	if err != nil {
		return err
	}
	if err := db.DeleteSearch(search.ID); err != nil {
		return err
	}

	fmt.Printf("Removed search: %s\n", name)
	if count > 0 {
		fmt.Printf("  Deleted %d listings\n", count)
	}
	return nil
}

func cmdStatus(cfg config.Config) error {
	fmt.Println("eBay Tracker Status")
	fmt.Println()
	fmt.Printf("Database: %s\n", cfg.DBPath)

	if _, err := os.Stat(cfg.DBPath); err == nil {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		searches, err := db.AllSearches()
		if err != nil {
			return err
		}
		total := 0
		for _, search := range searches {
			count, err := db.ListingCount(search.ID)
			if err != nil {
				return err
			}
			total += count
		}
		fmt.Printf("  Searches: %d\n", len(searches))
		fmt.Printf("  Listings: %d\n", total)
	} else {
		fmt.Println("  Not initialized")
	}

	fmt.Println()
	if cfg.ProxyURL != "" {
		fmt.Printf("Proxy: Configured (%s)\n", maskProxy(cfg.ProxyURL))
	} else {
		fmt.Println("Proxy: Not configured")
		fmt.Println("  Set DECODO_PROXY_URL in .env")
	}
	return nil
}

// maskProxy hides credentials embedded in a proxy URL.
func maskProxy(proxyURL string) string {
	if idx := strings.LastIndex(proxyURL, "@"); idx >= 0 {
		return proxyURL[idx+1:]
	}
	return proxyURL
}

func cmdFetch(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	pages := fs.Int("pages", 5, "Maximum result pages per search")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runner, err := newRunner(cfg, db, *pages)
	if err != nil {
		return err
	}

	if cfg.ProxyURL == "" {
		fmt.Println("Warning: No proxy configured. Requests may be blocked.")
		fmt.Println("Set DECODO_PROXY_URL in .env for better reliability.")
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var targets []model.Search
	if fs.NArg() > 0 {
		search, err := db.GetSearchByName(fs.Arg(0))
		if err != nil {
			return err
		}
		if search == nil {
			return fmt.Errorf("search %q not found", fs.Arg(0))
		}
		targets = []model.Search{*search}
	} else {
		targets, err = db.AllSearches()
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			fmt.Println("No searches to fetch. Use 'add' to create one.")
			return nil
		}
	}

	var results []pipeline.Result
	for _, search := range targets {
		fmt.Printf("Fetching: %s\n", search.Name)
		result := runner.FetchSearch(ctx, search)
		results = append(results, result)
		printFetchResult(result)
		if ctx.Err() != nil {
			break
		}
	}

	fmt.Println()
	fmt.Printf("Done! %d new listings added\n", totalNew(results))
	return nil
}

func printFetchResult(result pipeline.Result) {
	if result.Err != nil {
		fmt.Printf("  Error: %v\n", result.Err)
		return
	}
	fmt.Printf("  Found %d listings, %d new\n", result.Found, result.New)
}

func totalNew(results []pipeline.Result) int {
	total := 0
	for _, r := range results {
		total += r.New
	}
	return total
}

func cmdAnalyze(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	targetPrice := fs.Float64("target-price", 0, "Target price for wait estimate")
	csvPath := fs.String("csv", "", "Also export listing history to a CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("analyze requires a search name")
	}
	name := fs.Arg(0)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	search, err := db.GetSearchByName(name)
	if err != nil {
		return err
	}
	if search == nil {
		return fmt.Errorf("search %q not found", name)
	}

	listings, err := db.ListingsForSearch(search.ID)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Printf("%s - No data\n", search.Name)
		fmt.Println("Run 'fetch' to collect listings first.")
		return nil
	}

	var target *float64
	if *targetPrice > 0 {
		target = targetPrice
	}

	sum := analyzer.Analyze(listings)
	rec := analyzer.Recommend(listings, target)
	report.Render(os.Stdout, *search, sum, rec)

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		if err := report.WriteCSV(f, report.ListingRows(listings)); err != nil {
			return err
		}
		fmt.Printf("\nExported %d listings to %s\n", len(listings), *csvPath)
	}
	return nil
}

func cmdCategories(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	pref := fs.String("pref", "", "Gender preference: mens, womens, both (persisted)")
	find := fs.String("find", "", "Filter categories by keyword")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	preference := *pref
	if preference != "" {
		if err := db.SetPreference(genderPrefKey, preference); err != nil {
			return err
		}
	} else {
		preference, err = db.GetPreference(genderPrefKey)
		if err != nil {
			return err
		}
		if preference == "" {
			preference = "both"
		}
	}

	var cats map[int]string
	if *find != "" {
		cats = category.Search(*find, preference)
	} else {
		cats = category.ForPreference(preference)
	}

	if len(cats) == 0 {
		fmt.Println("No matching categories")
		return nil
	}

	fmt.Printf("Categories (%s):\n", preference)
	for _, id := range category.SortedIDs(cats) {
		fmt.Printf("  %7d  %s\n", id, cats[id])
	}
	return nil
}

func cmdWatch(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	spec := fs.String("schedule", "0 */6 * * *", "Cron schedule for fetches")
	pages := fs.Int("pages", 5, "Maximum result pages per search")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runner, err := newRunner(cfg, db, *pages)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New()
	err = sched.Start(*spec, func() {
		results, err := runner.FetchAll(ctx)
		if err != nil {
			log.Printf("watch: %v", err)
			return
		}
		log.Printf("watch: fetched %d searches, %d new listings", len(results), totalNew(results))
	})
	if err != nil {
		return err
	}

	log.Printf("Watching on schedule %q (Ctrl-C to stop)", *spec)
	sched.Run(ctx)
	return nil
}
