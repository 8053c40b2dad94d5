package main

import (
	"fmt"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Telegram bot subcommands",
}

var botTestCmd = &cobra.Command{
	Use:   "test [chat_id]",
	Short: "Verify the bot token, optionally send a test message",
	Long:  "Authenticates with the Telegram Bot API. When a chat id is given, also sends a test message to that chat.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBotTest,
}

func init() {
	rootCmd.AddCommand(botCmd)
	botCmd.AddCommand(botTestCmd)
}

func runBotTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error("telegram auth failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("authenticated as @%s\n", api.Self.UserName)

	if len(args) == 0 {
		return nil
	}
	chatID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		logger.Error("invalid chat id", "arg", args[0])
		os.Exit(1)
	}
	if _, err := api.Send(tgbotapi.NewMessage(chatID, "GigMatch test message 👋")); err != nil {
		logger.Error("test message failed", "error", err)
		os.Exit(1)
	}
	logger.Info("test message sent", "chat", chatID)
	return nil
}
