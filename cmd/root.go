package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "wanderlust",
		Short:         "Search, compare and book trips with the travel assistant",
		Long:          "wanderlust opens a chat with the travel assistant, shows the flight and hotel offers it proposes, and books the one you pick.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("assistant-url", "", "Base URL of the assistant service")
	flags.String("booking-url", "", "Base URL of the booking service (default: assistant URL)")
	flags.String("user-id", "", "User id sent with bookings (default: generated per session)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	for key, flag := range map[string]string{
		"assistant_url": "assistant-url",
		"booking_url":   "booking-url",
		"user_id":       "user-id",
		"log_level":     "log-level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newChatCmd(v),
		newAskCmd(v),
		newTranscriptCmd(v),
	)

	return rootCmd
}
