// Command setoran is the advisor-facing CLI for validating students'
// Quran memorization submissions (setoran hafalan).
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/apiclient"
	"github.com/setorandev/setoran-client/internal/authclient"
	"github.com/setorandev/setoran-client/internal/config"
	"github.com/setorandev/setoran-client/internal/logger"
	"github.com/setorandev/setoran-client/internal/model"
	"github.com/setorandev/setoran-client/internal/session"
	"github.com/setorandev/setoran-client/internal/snapshot"
	"github.com/setorandev/setoran-client/internal/tokenstore"
	"golang.org/x/term"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: setoran <command> [arguments]

Commands:
  login                          authenticate as an advisor
  logout                         end the session
  whoami                         show the signed-in identity
  summary                        show the advisee roster and progress
  student <nim>                  show one student's submission detail
  submit [-date YYYY-MM-DD] <nim> <component>...
                                 mark components as submitted
  withdraw <nim> <component>...  reverse submitted components`)
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	tokens := tokenstore.New(cfg.TokenFile, log)
	cache := snapshot.New(cfg.SnapshotFile, log)
	auth := authclient.New(cfg.KCBaseURL, cfg.KCRealm, cfg.KCClientID, cfg.KCClientSecret,
		cfg.KCScope, cfg.HTTPTimeout, log)
	api := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout, log)
	ctl := session.NewController(auth, api, tokens, cache, log)

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, ctl)
	case "logout":
		err = ctl.Logout(ctx)
		if err == nil {
			fmt.Println("Logged out.")
		}
	case "whoami":
		err = runWhoami(ctl)
	case "summary":
		err = runSummary(ctx, ctl)
	case "student":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		err = runStudent(ctx, ctl, os.Args[2])
	case "submit":
		err = runSubmit(ctx, ctl, os.Args[2:])
	case "withdraw":
		err = runWithdraw(ctx, ctl, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		exitWith(err, log)
	}
}

// exitWith prints a user-facing message for known failures and exits.
func exitWith(err error, log zerolog.Logger) {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		fmt.Fprintln(os.Stderr, "Your session has expired. Run `setoran login` to sign in again.")
	case errors.Is(err, session.ErrNotAuthenticated):
		fmt.Fprintln(os.Stderr, "You are not signed in. Run `setoran login` first.")
	case errors.Is(err, session.ErrRoleRequired):
		fmt.Fprintln(os.Stderr, "This account does not have the advisor (dosen) role.")
	case errors.Is(err, authclient.ErrInvalidCredentials):
		fmt.Fprintln(os.Stderr, "Login failed: invalid username or password.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	log.Debug().Err(err).Msg("Command failed")
	os.Exit(1)
}

func runLogin(ctx context.Context, ctl *session.Controller) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if err := ctl.Login(ctx, username, string(bytePassword)); err != nil {
		return err
	}

	if profile, perr := ctl.Profile(); perr == nil {
		fmt.Printf("Signed in as %s.\n", profile.DisplayName())
	} else {
		fmt.Println("Signed in.")
	}
	return nil
}

func runWhoami(ctl *session.Controller) error {
	profile, err := ctl.Profile()
	if err != nil {
		return err
	}
	fmt.Printf("Name:  %s\n", profile.DisplayName())
	if profile.Email != "" {
		fmt.Printf("Email: %s\n", profile.Email)
	}
	return nil
}

func runSummary(ctx context.Context, ctl *session.Controller) error {
	sum, err := ctl.AdvisorSummary(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s (NIP %s)\n", sum.Name, sum.NIP)
	fmt.Println()
	for _, cohort := range sum.Advisees.CohortCounts {
		fmt.Printf("  Angkatan %s: %d mahasiswa\n", cohort.Year, cohort.Total)
	}
	fmt.Println()
	fmt.Printf("  %-10s %-26s %-5s %8s\n", "NIM", "Nama", "Smt", "Progres")
	for _, st := range sum.Advisees.Students {
		fmt.Printf("  %-10s %-26s %-5d %7.1f%%\n", st.NIM, st.Name, st.Semester, st.Progress.Percent)
	}
	return nil
}

func runStudent(ctx context.Context, ctl *session.Controller, nim string) error {
	detail, degraded, err := ctl.StudentSubmissions(ctx, nim)
	if err != nil {
		return err
	}
	if degraded {
		fmt.Println("(offline: showing the last saved snapshot)")
	}

	info := detail.Info
	sum := detail.Submission.Summary
	fmt.Printf("%s (%s), angkatan %s, semester %d\n", info.Name, info.NIM, info.Cohort, info.Semester)
	fmt.Printf("Setoran: %d/%d (%.1f%%)\n\n", sum.Completed, sum.Required, sum.Percent)

	for _, comp := range detail.Submission.Components {
		mark := " "
		note := ""
		if comp.Completed {
			mark = "x"
			if comp.Evidence != nil {
				note = fmt.Sprintf("  (disetor %s, disahkan %s)", comp.Evidence.SubmittedAt, comp.Evidence.ValidatedBy.Name)
			}
		}
		fmt.Printf("  [%s] %-16s %-10s%s\n", mark, comp.Name, comp.Label, note)
	}
	return nil
}

func runSubmit(ctx context.Context, ctl *session.Controller, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	date := fs.String("date", "", "submission date (YYYY-MM-DD), defaults to today on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 2 {
		usage()
		os.Exit(2)
	}
	nim, names := rest[0], rest[1:]

	items, err := resolveComponents(ctx, ctl, nim, names, false)
	if err != nil {
		return err
	}

	detail, err := ctl.SubmitComponents(ctx, nim, items, *date)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d component(s). Progress now %d/%d.\n",
		len(items), detail.Submission.Summary.Completed, detail.Submission.Summary.Required)
	return nil
}

func runWithdraw(ctx context.Context, ctl *session.Controller, args []string) error {
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}
	nim, names := args[0], args[1:]

	items, err := resolveComponents(ctx, ctl, nim, names, true)
	if err != nil {
		return err
	}

	detail, err := ctl.WithdrawComponents(ctx, nim, items)
	if err != nil {
		return err
	}
	fmt.Printf("Withdrew %d component(s). Progress now %d/%d.\n",
		len(items), detail.Submission.Summary.Completed, detail.Submission.Summary.Required)
	return nil
}

// resolveComponents matches component names against the student's live
// detail. Writes must not be staged from a stale snapshot, so a degraded
// fetch refuses to proceed.
func resolveComponents(ctx context.Context, ctl *session.Controller, nim string, names []string, completed bool) ([]model.SubmissionItem, error) {
	detail, degraded, err := ctl.StudentSubmissions(ctx, nim)
	if err != nil {
		return nil, err
	}
	if degraded {
		return nil, fmt.Errorf("backend unreachable; refusing to stage changes from a cached snapshot")
	}

	items := make([]model.SubmissionItem, 0, len(names))
	for _, name := range names {
		comp, found := findByName(detail.Submission.Components, name)
		if !found {
			return nil, fmt.Errorf("component %q not found for student %s", name, nim)
		}
		if comp.Completed != completed {
			if completed {
				return nil, fmt.Errorf("component %q has not been submitted", name)
			}
			return nil, fmt.Errorf("component %q is already submitted", name)
		}
		item := model.SubmissionItem{ComponentID: comp.ID, ComponentName: comp.Name}
		if completed && comp.Evidence != nil {
			item.EvidenceID = comp.Evidence.ID
		}
		items = append(items, item)
	}
	return items, nil
}

func findByName(components []model.SubmissionComponent, name string) (model.SubmissionComponent, bool) {
	for _, comp := range components {
		if strings.EqualFold(comp.Name, name) {
			return comp, true
		}
	}
	return model.SubmissionComponent{}, false
}
