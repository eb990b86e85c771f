// lobdemo is a thin CLI that exercises the order book library: place
// one order described by the flags, print the resulting book depth,
// then tear down.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fastlob/internal/enums"
	"fastlob/internal/lob"
	"fastlob/internal/order"
)

func main() {
	side := flag.String("side", "bid", "order side: 'bid' or 'ask'")
	price := flag.Float64("price", 100.0, "limit price")
	qty := flag.Float64("qty", 10.0, "order quantity")
	tifStr := flag.String("tif", "gtc", "time in force: 'gtc', 'gtd' or 'fok'")
	expirySec := flag.Int64("expiry-in", 0, "seconds from now the order expires, for 'gtd'")
	depth := flag.Int("depth", 5, "number of price levels to print per side")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var s enums.Side
	switch *side {
	case "bid":
		s = enums.Bid
	case "ask":
		s = enums.Ask
	default:
		fmt.Fprintf(os.Stderr, "unknown side %q\n", *side)
		os.Exit(1)
	}

	var tif enums.TimeInForce
	switch *tifStr {
	case "gtc":
		tif = enums.GTC
	case "gtd":
		tif = enums.GTD
	case "fok":
		tif = enums.FOK
	default:
		fmt.Fprintf(os.Stderr, "unknown tif %q\n", *tifStr)
		os.Exit(1)
	}

	var expiry int64
	if tif == enums.GTD {
		expiry = time.Now().Add(time.Duration(*expirySec) * time.Second).Unix()
	}

	ob := lob.New("demo")
	ob.Start()
	defer ob.Stop()

	params, err := order.NewParams(s, *price, *qty, tif, expiry)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid order params")
	}

	res := ob.ProcessOne(params)
	fmt.Printf("success=%v messages=%v\n", res.Success(), res.Messages())

	printDepth(ob, *depth)
}

func printDepth(ob *lob.OrderBook, n int) {
	fmt.Println("asks:")
	for _, t := range ob.BestAsks(n) {
		fmt.Printf("  %s x %s (%d orders)\n", t.Price, t.Volume, t.ValidOrders)
	}
	fmt.Println("bids:")
	for _, t := range ob.BestBids(n) {
		fmt.Printf("  %s x %s (%d orders)\n", t.Price, t.Volume, t.ValidOrders)
	}
	if mid, ok := ob.Midprice(); ok {
		fmt.Printf("midprice: %s\n", mid)
	}
}
