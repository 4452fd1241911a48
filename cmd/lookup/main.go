// Command lookup resolves one barcode against the catalog server and prints
// the product record.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"barcode-lookup/internal/config"
	"barcode-lookup/internal/entity"
	"barcode-lookup/internal/pkg/apperr"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/pkg/lookup"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()

	code := flag.String("code", "", "barcode to look up")
	base := flag.String("base", cfg.Lookup.BaseURL, "catalog base URL")
	timeout := flag.Duration("timeout", 0, "give up after this long (0 waits for the transport)")
	asJSON := flag.Bool("json", false, "print the record as JSON")
	flag.Parse()

	if *code == "" && flag.NArg() > 0 {
		*code = flag.Arg(0)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	client := lookup.NewClient(*base, logger.NewNopLogger())
	color.Cyan("GET %s", client.URLFor(*code))

	start := time.Now()
	record, err := client.Lookup(ctx, *code)
	if err != nil {
		kind := apperr.KindOf(err)
		color.Red("%s: %v", kind, err)
		if kind == apperr.KindInvalidInput {
			os.Exit(2)
		}
		os.Exit(1)
	}

	if *asJSON {
		out, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(out))
		return
	}
	printRecord(record, time.Since(start))
}

func printRecord(r *entity.ProductRecord, took time.Duration) {
	label := color.New(color.FgYellow).SprintFunc()
	color.Green("Resolved in %s", took.Round(time.Millisecond))
	fmt.Printf("%s %s\n", label("id:                 "), r.ID)
	fmt.Printf("%s %s\n", label("name:               "), r.NameEs)
	fmt.Printf("%s %s\n", label("reference:          "), r.Reference)
	fmt.Printf("%s %s\n", label("internalPackBarcode:"), r.InternalPackBarcode)
	fmt.Printf("%s %s\n", label("dun14:              "), r.Dun14)
	fmt.Printf("%s %s\n", label("barCode:            "), optional(r.BarCode))
	fmt.Printf("%s %s\n", label("ean13:              "), optional(r.Ean13))
}

func optional(s *string) string {
	if s == nil {
		return color.New(color.Faint).Sprint("(absent)")
	}
	return *s
}
