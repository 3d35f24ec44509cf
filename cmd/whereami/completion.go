package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for whereami.

To load completions:

Bash:
  $ source <(whereami completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ whereami completion bash > /etc/bash_completion.d/whereami
  # macOS:
  $ whereami completion bash > $(brew --prefix)/etc/bash_completion.d/whereami

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ whereami completion zsh > "${fpath[1]}/_whereami"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ whereami completion fish | source

  # To load completions for each session, execute once:
  $ whereami completion fish > ~/.config/fish/completions/whereami.fish

PowerShell:
  PS> whereami completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> whereami completion powershell > whereami.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}

		root := cmd.Root()
		out := cmd.OutOrStdout()

		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeEventTypes completes comma-separated event type lists, offering
// only types not already chosen in the current word or earlier flag uses.
func completeEventTypes(flagName string) func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		done, current := "", toComplete
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			done, current = toComplete[:i+1], toComplete[i+1:]
		}
		current = strings.ToLower(strings.TrimSpace(current))

		used := strings.Split(done, ",")
		if vals, err := cmd.Flags().GetStringSlice(flagName); err == nil {
			used = append(used, vals...)
		}
		taken := make(map[string]bool, len(used))
		for _, v := range used {
			taken[strings.ToLower(strings.TrimSpace(v))] = true
		}

		var candidates []string
		for _, name := range ValidEventTypeNames() {
			if !taken[name] && strings.HasPrefix(name, current) {
				candidates = append(candidates, done+name)
			}
		}
		return candidates, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	}
}

func registerEventTypeCompletion(cmd *cobra.Command, flagName string) {
	_ = cmd.RegisterFlagCompletionFunc(flagName, completeEventTypes(flagName))
}
