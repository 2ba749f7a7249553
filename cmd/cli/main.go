package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"domme-chat/internal/chat"
	"domme-chat/internal/config"
	"domme-chat/internal/sequence"
	"domme-chat/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var storagePath string

	root := &cobra.Command{
		Use:          "domme-chat",
		Short:        "Inspect reply sequences and manage chat state",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&storagePath, "storage", "", "path to the datastore file (default: STORAGE_PATH)")

	open := func() (*storage.Storage, error) {
		path := storagePath
		if path == "" {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			path = cfg.StoragePath
		}
		return storage.New(path)
	}

	root.AddCommand(previewCmd())
	root.AddCommand(cooldownsCmd(open))
	root.AddCommand(settingsCmd(open))
	return root
}

type opener func() (*storage.Storage, error)

func previewCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Show how a model reply would be split and played back",
		Long: `Parses a reply blob (from a file, or stdin when no file is given)
and prints the resulting items. Text is shown as the chunks that would be posted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			blob, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			printPreview(cmd.OutOrStdout(), sequence.Parse(string(blob)), limit)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", sequence.DefaultChunkLimit, "maximum characters per posted message")
	return cmd
}

func printPreview(w io.Writer, items []sequence.Item, limit int) {
	if sequence.IsBlank(items) {
		fmt.Fprintln(w, "(nothing visible: the fallback line would be sent)")
		return
	}
	n := 0
	for _, it := range items {
		switch v := it.(type) {
		case sequence.TextChunk:
			for _, c := range sequence.Chunk(v.Content, limit) {
				n++
				fmt.Fprintf(w, "#%d text %q\n", n, c)
			}
		case sequence.DeleteOp:
			fmt.Fprintf(w, "   delete last %d\n", v.Count)
		case sequence.EditOp:
			fmt.Fprintf(w, "   edit -%d -> %q\n", v.FromEnd, v.NewContent)
		case sequence.PauseOp:
			fmt.Fprintln(w, "   pause")
		case sequence.ReactionOp:
			fmt.Fprintf(w, "   react %s\n", v.Emoji)
		}
	}
}

func cooldownsCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cooldowns",
		Short: "List and clear response cooldowns",
	}

	list := &cobra.Command{
		Use:   "list [guild]",
		Short: "List active cooldowns, optionally for one guild",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			guild := ""
			if len(args) == 1 {
				guild = args[0]
			}
			cds, err := store.ListCooldowns(guild)
			if err != nil {
				return err
			}
			if len(cds) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active cooldowns.")
				return nil
			}
			for _, c := range cds {
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s until %s\n", c.Key, c.Until.Format(time.RFC3339))
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <user|channel|guild|global> [guild] [subject]",
		Short: "Clear one cooldown",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := chat.CooldownScope(args[0])
			if !scope.Valid() {
				return fmt.Errorf("unknown scope %q", args[0])
			}
			args = append(args, "", "")
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.ClearCooldown(scope, args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared.")
			return nil
		},
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cooldowns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.ClearExpiredCooldowns()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cooldowns.\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd, sweep)
	return cmd
}

func settingsCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change a guild's chat settings",
	}

	show := &cobra.Command{
		Use:   "show <guild>",
		Short: "Print the effective settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			s, err := store.GetChatSettings(args[0])
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}

	var (
		mentions, replies    bool
		cooldown             int
		whitelist, blacklist []string
	)
	set := &cobra.Command{
		Use:   "set <guild>",
		Short: "Change the given settings, keeping the rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			s, err := store.GetChatSettings(args[0])
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("mentions") {
				s.AllowedMentions = mentions
			}
			if f.Changed("replies") {
				s.AllowedReplies = replies
			}
			if f.Changed("cooldown") {
				if cooldown < 0 {
					return fmt.Errorf("cooldown must be >= 0")
				}
				s.CooldownSeconds = cooldown
			}
			if f.Changed("whitelist") {
				s.WhitelistedChannels = whitelist
			}
			if f.Changed("blacklist") {
				s.BlacklistedChannels = blacklist
			}
			if err := store.SetChatSettings(args[0], s); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}
	set.Flags().BoolVar(&mentions, "mentions", true, "answer when mentioned or named")
	set.Flags().BoolVar(&replies, "replies", true, "answer replies to the bot")
	set.Flags().IntVar(&cooldown, "cooldown", 30, "seconds between answers per user and channel")
	set.Flags().StringSliceVar(&whitelist, "whitelist", nil, "only chat in these channels")
	set.Flags().StringSliceVar(&blacklist, "blacklist", nil, "never chat in these channels")

	reset := &cobra.Command{
		Use:   "reset <guild>",
		Short: "Restore the default settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.ResetChatSettings(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reset to defaults.")
			return nil
		},
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}

func printSettings(w io.Writer, s chat.GuildSettings) {
	fmt.Fprintf(w, "mentions:  %v\n", s.AllowedMentions)
	fmt.Fprintf(w, "replies:   %v\n", s.AllowedReplies)
	fmt.Fprintf(w, "cooldown:  %ds\n", s.CooldownSeconds)
	fmt.Fprintf(w, "whitelist: %s\n", joinOrDash(s.WhitelistedChannels))
	fmt.Fprintf(w, "blacklist: %s\n", joinOrDash(s.BlacklistedChannels))
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ",")
}
