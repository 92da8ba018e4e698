package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cryptoconverter/config"
	"cryptoconverter/internal/exchange"
	"cryptoconverter/logger"
	"cryptoconverter/pkg/storage/redis"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// convert prices one request against the fast store and prints the result as JSON.
func main() {
	flags := pflag.NewFlagSet("convert", pflag.ExitOnError)
	configFile := flags.String("config", "", "path to config.yaml")
	from := flags.String("from", "", "currency to convert from, e.g. btc")
	to := flags.String("to", "", "currency to convert to, e.g. usdt")
	amountFrom := flags.String("amount-from", "", "amount of the from currency")
	amountTo := flags.String("amount-to", "", "amount of the to currency")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log, "convert")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	req := exchange.Request{From: *from, To: *to}
	if req.AmountFrom, err = parseAmount("amount_from", *amountFrom); err == nil {
		req.AmountTo, err = parseAmount("amount_to", *amountTo)
	}
	if err == nil {
		err = req.Validate(cfg.Exchange.QuotePrecision)
	}
	if err != nil {
		exit(log, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		exit(log, err)
	}
	defer store.Close()

	engine := exchange.NewEngine(nil, store, exchange.Options{
		QuotePrecision:  int32(cfg.Exchange.QuotePrecision),
		TargetPrecision: int32(cfg.Exchange.TargetPrecision),
		Expiration:      cfg.Exchange.Expiration(),
	}, log)

	res, err := engine.Convert(ctx, req)
	if err != nil {
		exit(log, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}

func parseAmount(field, s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, &exchange.ValidationError{Field: field, Msg: "is not a decimal number"}
	}
	return &d, nil
}

// exit prints the error with the status an HTTP caller would see.
func exit(log *zap.Logger, err error) {
	status := exchange.StatusCode(err)
	log.Warn("conversion failed", zap.Int("status", status), zap.Error(err))
	_ = json.NewEncoder(os.Stderr).Encode(map[string]any{"status": status, "detail": err.Error()})
	_ = log.Sync()
	os.Exit(1)
}
