package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	stdnet "net"
	"os"
	"strings"
	"time"

	"gungnir/internal/common"
	gungnirNet "gungnir/internal/net"
)

func main() {
	// CLI parameter parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	action := flag.String("action", "place", "Action: ['open', 'deposit', 'place', 'move', 'cancel']")

	uid := flag.Int64("uid", 0, "Account id (compulsory)")
	symbol := flag.Int("symbol", 0, "Symbol id")

	// Order parameters
	orderID := flag.Int64("order", 0, "Order id")
	sideStr := flag.String("side", "bid", "Order side: 'bid' or 'ask'")
	lifeStr := flag.String("life", "gtc", "Order lifetime: 'gtc' or 'ioc'")
	price := flag.Int64("price", 0, "Limit price in price steps")
	size := flag.Int64("size", 0, "Order size in lots")
	reserve := flag.Int64("reserve", 0, "Reserve price for bids (0 = limit price)")

	// Balance parameters
	currency := flag.Int("currency", 0, "Currency id")
	amount := flag.Int64("amount", 0, "Signed adjustment amount")
	txid := flag.Int64("txid", time.Now().UnixNano(), "Adjustment transaction id")

	flag.Parse()

	if *uid == 0 {
		fmt.Println("Error: -uid is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := stdnet.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as uid %d\n", *serverAddr, *uid)

	go readReports(conn)

	side := common.Bid
	if strings.ToLower(*sideStr) == "ask" {
		side = common.Ask
	}
	life := common.GTC
	if strings.ToLower(*lifeStr) == "ioc" {
		life = common.IOC
	}

	var payload []byte
	const corr = 1
	switch strings.ToLower(*action) {
	case "open":
		payload = gungnirNet.EncodeOpenAccount(corr, common.UserID(*uid))
	case "deposit":
		cmd, err := common.NewAdjustBalance(common.UserID(*uid), common.CurrencyID(*currency), *amount, *txid)
		if err != nil {
			log.Fatalf("Invalid adjustment: %v", err)
		}
		payload = gungnirNet.EncodeAdjustBalance(corr, cmd)
	case "place":
		cmd, err := common.NewPlaceOrder(
			common.UserID(*uid), common.OrderID(*orderID), common.SymbolID(*symbol),
			side, life, *price, *size, *reserve,
		)
		if err != nil {
			log.Fatalf("Invalid order: %v", err)
		}
		payload = gungnirNet.EncodePlaceOrder(corr, cmd)
	case "move":
		cmd, err := common.NewMoveOrder(common.UserID(*uid), common.OrderID(*orderID), common.SymbolID(*symbol), *price)
		if err != nil {
			log.Fatalf("Invalid move: %v", err)
		}
		payload = gungnirNet.EncodeMoveOrder(corr, cmd)
	case "cancel":
		cmd, err := common.NewCancelOrder(common.UserID(*uid), common.OrderID(*orderID), common.SymbolID(*symbol))
		if err != nil {
			log.Fatalf("Invalid cancel: %v", err)
		}
		payload = gungnirNet.EncodeCancelOrder(corr, cmd)
	default:
		log.Fatalf("Unknown action %q", *action)
	}

	if _, err := conn.Write(gungnirNet.Frame(payload)); err != nil {
		log.Fatalf("Failed to send %s: %v", *action, err)
	}

	// Give the server a moment to resolve and report back.
	time.Sleep(2 * time.Second)
}

func readReports(conn stdnet.Conn) {
	buf := make([]byte, gungnirNet.ReportLen)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			if err != io.EOF {
				log.Printf("read error: %v", err)
			}
			return
		}
		report, err := gungnirNet.ParseReport(buf)
		if err != nil {
			log.Printf("bad report: %v", err)
			continue
		}
		switch report.TypeOf {
		case gungnirNet.ResultReport:
			fmt.Printf("result: seq=%d code=%s\n", report.Seq, report.Code)
		case gungnirNet.TradeReport:
			fmt.Printf("trade: order=%d %d@%d fee=%d\n",
				report.OrderID, report.Size, report.Price, report.Fee)
		case gungnirNet.ReduceReport:
			fmt.Printf("reduce: order=%d size=%d\n", report.OrderID, report.Size)
		}
	}
}
