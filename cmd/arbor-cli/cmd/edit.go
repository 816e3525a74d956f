package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"arbor/internal/app"
	"arbor/internal/application"
	"arbor/internal/application/commands"
	"arbor/internal/application/session"
)

// editFlags are the session fields settable from the command line.
type editFlags struct {
	name       string
	content    string
	useEditor  bool
	encrypt    bool
	decrypt    bool
	priority   string
	layout     string
	props      []string
	deleteProp []string
	insertTime bool
}

func (f *editFlags) register(cmd *cobra.Command, withEncryption bool) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "node name")
	cmd.Flags().StringVarP(&f.content, "content", "c", "", "node content (- reads stdin)")
	cmd.Flags().BoolVarP(&f.useEditor, "editor", "e", false, "edit content in $EDITOR")
	cmd.Flags().StringVar(&f.priority, "priority", "", "priority 0 (none) to 5")
	cmd.Flags().StringVar(&f.layout, "layout", "", "child layout (v, c2, c3, c4)")
	cmd.Flags().StringArrayVarP(&f.props, "prop", "p", nil, "set property name=value (repeatable)")
	if withEncryption {
		cmd.Flags().BoolVar(&f.encrypt, "encrypt", false, "encrypt the content")
		cmd.Flags().BoolVar(&f.decrypt, "decrypt", false, "remove encryption")
		cmd.Flags().StringArrayVar(&f.deleteProp, "delete-prop", nil, "delete a property (repeatable)")
		cmd.Flags().BoolVar(&f.insertTime, "insert-time", false, "append the current time to the content")
		cmd.MarkFlagsMutuallyExclusive("encrypt", "decrypt")
	}
	cmd.MarkFlagsMutuallyExclusive("content", "editor")
}

// apply writes the flags into sess. Properties are deleted on the
// authority right away; everything else waits for Save.
func (f *editFlags) apply(ctx context.Context, cmd *cobra.Command, a *app.App, sess *session.Session) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		if err := sess.SetName(f.name); err != nil {
			return err
		}
	}

	switch {
	case flags.Changed("content"):
		content := f.content
		if content == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}
			content = string(data)
		}
		if err := sess.SetContent(content); err != nil {
			return err
		}
	case f.useEditor:
		content, err := editInEditor(a, sess.Content())
		if err != nil {
			return err
		}
		if err := sess.SetContent(content); err != nil {
			return err
		}
	}
	if f.insertTime {
		if err := sess.InsertTime(time.Now()); err != nil {
			return err
		}
	}

	if f.priority != "" {
		if err := sess.SetPriority(f.priority); err != nil {
			return err
		}
	}
	if f.layout != "" {
		if err := sess.SetLayout(f.layout); err != nil {
			return err
		}
	}
	for _, p := range f.props {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return &application.ValidationError{Field: "prop", Message: fmt.Sprintf("expected name=value, got %q", p)}
		}
		if err := sess.SetProperty(name, value); err != nil {
			if err := sess.AddProperty(name, value); err != nil {
				return err
			}
		}
	}
	if len(f.deleteProp) > 0 {
		for _, name := range f.deleteProp {
			if err := sess.MarkForDeletion(name, true); err != nil {
				return err
			}
		}
		if err := sess.DeleteMarkedProperties(ctx); err != nil {
			return err
		}
	}

	if f.encrypt || f.decrypt {
		if err := sess.SetEncryption(f.encrypt); err != nil {
			return err
		}
	}
	return nil
}

// editInEditor round-trips content through a temporary file.
func editInEditor(a *app.App, content string) (string, error) {
	f, err := os.CreateTemp("", "arbor-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := a.Editor.OpenFile(path); err != nil {
		return "", fmt.Errorf("editor failed: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}
	return string(data), nil
}

// fillAndSave applies f to sess and saves it, cancelling the session on
// any failure that leaves it open.
func fillAndSave(ctx context.Context, cmd *cobra.Command, a *app.App, sess *session.Session, f *editFlags) error {
	if err := f.apply(ctx, cmd, a, sess); err != nil {
		_ = sess.Cancel()
		return err
	}
	res, err := sess.Save(ctx)
	if err != nil {
		if sess.State() == session.Editing {
			_ = sess.Cancel()
		}
		var partial *application.PartialDistributionError
		if res != nil && errors.As(err, &partial) {
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return fmt.Errorf("%w\nrun 'arbor-cli keys retry' to deliver the rest", err)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	if res.Shared > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Content key delivered to %d principal(s)\n", res.Shared)
	}
	return nil
}

var editOpts editFlags

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a node",
	Long: `Edit the name, content, properties or encryption of a node you own.

Examples:
  arbor-cli edit 1f0c6e2a --name "Groceries"
  arbor-cli edit 1f0c6e2a --editor
  echo "new text" | arbor-cli edit 1f0c6e2a --content -
  arbor-cli edit 1f0c6e2a --encrypt
  arbor-cli edit 1f0c6e2a --prop color=blue --delete-prop old`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if err := a.Focus(ctx, args[0]); err != nil {
			return err
		}
		sess, err := commands.NewOpenEditCommand(a.Workspace, a.Sessions, args[0]).Execute(ctx)
		if err != nil {
			return err
		}
		return fillAndSave(ctx, cmd, a, sess, &editOpts)
	},
}

var setTypeCmd = &cobra.Command{
	Use:   "set-type <id> <type>",
	Short: "Change the type of a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if err := a.Focus(ctx, args[0]); err != nil {
			return err
		}
		sess, err := commands.NewOpenEditCommand(a.Workspace, a.Sessions, args[0]).Execute(ctx)
		if err != nil {
			return err
		}
		defer sess.Cancel()
		if err := sess.ChangeType(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Type of %s set to %s\n", args[0], args[1])
		return nil
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt <id>",
	Short: "Encrypt the content of a node",
	Long: `Encrypt the content of a node and deliver its key to everyone the
node is shared with. Shortcut for 'edit <id> --encrypt'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if err := a.Focus(ctx, args[0]); err != nil {
			return err
		}
		sess, err := commands.NewOpenEditCommand(a.Workspace, a.Sessions, args[0]).Execute(ctx)
		if err != nil {
			return err
		}
		return fillAndSave(ctx, cmd, a, sess, &editFlags{encrypt: true})
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(setTypeCmd)
	rootCmd.AddCommand(encryptCmd)
	editOpts.register(editCmd, true)
}
