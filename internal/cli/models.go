package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/funnel/internal/config"
	"github.com/dshills/funnel/internal/providers"
)

// providerInfo describes one provider funnel can talk to. Credentials lists
// the environment variables that can hold its key, in lookup order; an empty
// list means no key is needed.
type providerInfo struct {
	Name        string
	Credentials []string
	Models      []string
}

var catalog = []providerInfo{
	{"anthropic", []string{"ANTHROPIC_API_KEY"}, []string{"claude-sonnet-4-20250514", "claude-opus-4-20250514", "claude-3-5-haiku-latest"}},
	{"openai", []string{"OPENAI_API_KEY"}, []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1-mini", "o3-mini"}},
	{"deepseek", []string{"DEEPSEEK_API_KEY"}, []string{"deepseek-chat", "deepseek-reasoner"}},
	{"gemini", []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}, []string{"gemini-2.5-flash", "gemini-2.5-pro"}},
	{"ollama", nil, []string{"llama3.3", "qwen2.5-coder", "deepseek-coder-v2"}},
}

// credentialStatus names the variable that supplies a provider's key, or
// reports that none is set.
func credentialStatus(p providerInfo) string {
	if len(p.Credentials) == 0 {
		return "no key required"
	}
	for _, env := range p.Credentials {
		if os.Getenv(env) != "" {
			return env + " set"
		}
	}
	return p.Credentials[0] + " missing"
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List providers and check credentials",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers, suggested models and credential status",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range catalog {
			if flagProvider != "" && p.Name != flagProvider {
				continue
			}
			fmt.Fprintf(os.Stdout, "%s [%s]\n", p.Name, credentialStatus(p))
			for _, m := range p.Models {
				fmt.Fprintf(os.Stdout, "    %s\n", m)
			}
		}
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Send a tiny request to the configured review and summary models",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			fail(err)
			return
		}

		targets := [][2]string{{cfg.Provider, cfg.Model}}
		if sp, sm := cfg.SummaryClient(); sp != cfg.Provider || sm != cfg.Model {
			targets = append(targets, [2]string{sp, sm})
		}
		for _, t := range targets {
			if err := ping(t[0], t[1]); err != nil {
				fmt.Fprintf(os.Stderr, "%s/%s: FAIL: %v\n", t[0], t[1], err)
				exitCode = exitFor(err)
				continue
			}
			fmt.Fprintf(os.Stdout, "%s/%s: ok\n", t[0], t[1])
		}
	},
}

func ping(provider, model string) error {
	c, err := providers.New(provider, model)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err = c.Generate(ctx, providers.Request{
		SystemPrompt: "Reply with the single word ok.",
		UserPrompt:   "ping",
		MaxTokens:    8,
	})
	return err
}

func init() {
	modelsListCmd.Flags().StringVar(&flagProvider, "provider", "", "Only list this provider")
	modelsDoctorCmd.Flags().StringVar(&flagProvider, "provider", "", "Provider to check")
	modelsDoctorCmd.Flags().StringVar(&flagModel, "model", "", "Model to check")
	modelsDoctorCmd.Flags().StringVar(&flagSummaryModel, "summary-model", "", "Summary model to check")
	modelsCmd.AddCommand(modelsListCmd, modelsDoctorCmd)
}
