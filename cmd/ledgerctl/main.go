// ledgerctl 是运维命令行：查询钱包与提现、审核提现、清理过期会话。
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"linkpay-platform/pkg/logger"
)

func main() {
	logger.InitLogger(logger.Options{Level: os.Getenv("LOG_LEVEL")})
	defer func() { _ = zap.L().Sync() }()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
