package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ochse/webwatch"
)

func main() {
	// Open a throwaway registry and run one batch by hand.
	w, err := webwatch.New("watch.db", webwatch.Options{})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	ctx := context.Background()
	id, err := w.Store().Insert(ctx, webwatch.Record{
		URL:        "https://example.com",
		Selector:   "h1",
		OwnerEmail: "me@example.com",
		OwnerKey:   "demo",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("registered monitor", id)

	sum, err := w.RunOnce(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("checked=%d snapshots=%d changed=%d failed=%d\n",
		sum.Checked, sum.Snapshots, sum.Changed, sum.Failed)
}
