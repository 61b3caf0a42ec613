package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/mkarsten/bankledger/internal/api"
	"github.com/mkarsten/bankledger/internal/config"
	"github.com/mkarsten/bankledger/internal/service"
	"github.com/mkarsten/bankledger/internal/store"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ledgerStore, err := store.NewPostgres(context.Background(), cfg.DBSource)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer ledgerStore.Close()

	accounts := service.NewAccountService(ledgerStore, logger)
	transfers := service.NewTransferService(ledgerStore, logger, cfg.TransferMaxAttempts, cfg.TransferRetryBackoff)
	handler := api.NewHandler(accounts, transfers, logger)

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := http.ListenAndServe(":"+cfg.Port, handler.Router()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
