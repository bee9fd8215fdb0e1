package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"costsync/pkg/config"
	"costsync/pkg/costsync"
	"costsync/pkg/export"
	"costsync/pkg/ghe"
	"costsync/pkg/namecache"
)

var (
	syncApply         bool
	syncYes           bool
	syncForceReassign bool
	syncExport        bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Plan or apply cost center assignments",
	Long: `Sync computes the desired cost center assignments from the configured
source (teams, exceptions or repositories), compares them with the
current state, and shows the resulting change set.

Without --apply nothing is changed. With --apply the changes are
executed after a confirmation prompt; --yes skips the prompt.

Examples:
  # Preview the changes
  costsync sync

  # Apply after confirmation
  costsync sync --apply

  # Apply without prompting (CI)
  costsync sync --apply --yes

  # Move users even when they already belong to another cost center
  costsync sync --apply --force-reassign

  # Also write the assignments to the export directory
  costsync sync --export`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncApply, "apply", false, "Apply the planned changes instead of only showing them")
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "Skip the confirmation prompt")
	syncCmd.Flags().BoolVar(&syncForceReassign, "force-reassign", false, "Reassign users that already belong to a different cost center")
	syncCmd.Flags().BoolVar(&syncExport, "export", false, "Write the resolved assignments to the export directory")
}

func runSync(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	logger := setupLogging(cfg)

	ctx := context.Background()

	client, err := authenticate(ctx, cfg)
	if err != nil {
		return err
	}

	store := openCache(cfg, logger)
	defer store.Close()

	if cfg.CostCenters.Mode == config.ModeRepositories {
		return runRepositorySync(ctx, client, store, cfg, logger)
	}
	return runUserSync(ctx, client, store, cfg, logger)
}

// authenticate builds the API client and validates the token. Auth
// failures abort before any other call.
func authenticate(ctx context.Context, cfg *config.Config) (*ghe.Client, error) {
	token, err := ghe.GetToken(cfg.GitHub.Token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ghe.AuthInstructions())
		return nil, err
	}

	client := ghe.NewClient(token, cfg.GitHub.Enterprise)
	user, err := client.ValidateAuth(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Authentication failed: %v\n\n%s\n", err, ghe.AuthInstructions())
		return nil, err
	}

	fmt.Printf("✓ Authenticated as %s\n", user)
	return client, nil
}

// openCache opens the persistent name cache, falling back to an
// in-memory store when the file cannot be opened
func openCache(cfg *config.Config, logger *slog.Logger) namecache.Store {
	path, err := cfg.CachePath()
	if err == nil {
		store, openErr := namecache.Open(path)
		if openErr == nil {
			return store
		}
		err = openErr
	}
	logger.Warn("cache unavailable, continuing without persistence", "error", err)
	return namecache.NewMemoryStore()
}

func runUserSync(ctx context.Context, client ghe.APIClient, store namecache.Store, cfg *config.Config, logger *slog.Logger) error {
	var (
		desired    map[string]costsync.Assignment
		resolution *costsync.Resolution
		autoCreate = true
		fullSync   bool
		protected  []string
	)

	switch cfg.CostCenters.Mode {
	case config.ModeTeams:
		teamsCfg := cfg.CostCenters.Teams
		fetcher := costsync.NewFetcher(client, logger)

		var teams []costsync.TeamMembers
		var err error
		if teamsCfg.Scope == config.ScopeEnterprise {
			teams, err = fetcher.FetchEnterprise(ctx)
		} else {
			teams, err = fetcher.FetchOrganizations(ctx, teamsCfg.Organizations)
		}
		if err != nil {
			return err
		}

		resolution = costsync.Resolve(teams, buildPolicy(teamsCfg), logger)
		desired = resolution.Assignments
		autoCreate = teamsCfg.AutoCreate
		fullSync = teamsCfg.FullSync
		protected = teamsCfg.ProtectedUsers

	case config.ModeExceptions:
		seats, err := costsync.FetchSeats(ctx, client, logger)
		if err != nil {
			return err
		}
		excCfg := cfg.CostCenters.Exceptions
		split := costsync.SplitSeats(seats, excCfg.ExceptionUsers, excCfg.DefaultCostCenter, excCfg.ExceptionCostCenter)
		desired = split.Assignments
		fmt.Printf("📋 %d seat holders: %d exception, %d default\n",
			len(split.Assignments), len(split.ExceptionUsers), len(split.DefaultUsers))
	}

	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	materializer := costsync.NewMaterializer(client, store, ttl, autoCreate, logger)

	// Plan-mode materialization: missing cost centers are only created
	// after the user confirmed.
	matResult, err := materializer.Materialize(ctx, costCenterNames(desired), false)
	if err != nil {
		return err
	}

	executor := costsync.NewExecutor(client, costsync.ExecutorOptions{
		BatchSize:      cfg.CostCenters.BatchSize,
		FullSync:       fullSync,
		ForceReassign:  syncForceReassign,
		ProtectedUsers: protected,
	}, logger)

	plan, err := executor.Plan(ctx, desired, matResult)
	if err != nil {
		return err
	}

	displayPlan(plan, resolution, syncApply)

	if syncExport {
		if err := exportAssignments(cfg, desired); err != nil {
			logger.Warn("export failed", "error", err)
		}
	}

	if !syncApply {
		fmt.Printf("\n✓ Plan complete. No changes were applied. Run with --apply to execute.\n")
		return nil
	}

	if !plan.HasChanges() {
		fmt.Printf("\n✓ Everything is up to date. No changes needed.\n")
		return nil
	}

	if err := confirmApply(plan.TotalAdds(), plan.TotalRemoves()); err != nil {
		return err
	}

	// Now that the user confirmed, create pending cost centers and
	// re-plan so they carry IDs.
	matResult, err = materializer.Materialize(ctx, costCenterNames(desired), true)
	if err != nil {
		return err
	}
	plan, err = executor.Plan(ctx, desired, matResult)
	if err != nil {
		return err
	}

	bar := newProgressBar(plan.TotalAdds() + plan.TotalRemoves())
	executor.Progress = func(n int) { _ = bar.Add(n) }

	result, applyErr := executor.Apply(ctx, plan)
	_ = bar.Finish()
	displayResult(result)

	if applyErr != nil {
		return applyErr
	}
	if result.TotalFailed() > 0 {
		return fmt.Errorf("sync completed with %d failed operations", result.TotalFailed())
	}
	return nil
}

func runRepositorySync(ctx context.Context, client ghe.APIClient, store namecache.Store, cfg *config.Config, logger *slog.Logger) error {
	repoCfg := cfg.CostCenters.Repositories

	var repos []ghe.RepoProperties
	for _, org := range repoCfg.Organizations {
		orgRepos, err := client.ListRepoPropertyValues(ctx, org)
		if err != nil {
			if ghe.IsAuthError(err) {
				return err
			}
			logger.Warn("skipping organization, property listing failed", "org", org, "error", err)
			continue
		}
		repos = append(repos, orgRepos...)
	}

	mappings := make([]costsync.RepoMapping, 0, len(repoCfg.Mappings))
	for _, m := range repoCfg.Mappings {
		mappings = append(mappings, costsync.RepoMapping{
			CostCenter:     m.CostCenter,
			PropertyName:   m.PropertyName,
			PropertyValues: m.PropertyValues,
		})
	}

	desired := costsync.MatchRepositories(repos, mappings)
	if len(desired) == 0 {
		fmt.Printf("\n✓ No repositories matched the configured mappings. Nothing to do.\n")
		return nil
	}

	names := make([]string, 0, len(desired))
	for name := range desired {
		names = append(names, name)
	}

	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	materializer := costsync.NewMaterializer(client, store, ttl, true, logger)
	matResult, err := materializer.Materialize(ctx, names, false)
	if err != nil {
		return err
	}

	syncer := costsync.NewRepoSyncer(client, cfg.CostCenters.BatchSize, logger)
	plans, err := syncer.Plan(ctx, desired, matResult)
	if err != nil {
		return err
	}

	displayRepoPlan(plans, syncApply)

	totalAdds := 0
	for _, p := range plans {
		totalAdds += len(p.Add)
	}

	if !syncApply {
		fmt.Printf("\n✓ Plan complete. No changes were applied. Run with --apply to execute.\n")
		return nil
	}

	if totalAdds == 0 {
		fmt.Printf("\n✓ Everything is up to date. No changes needed.\n")
		return nil
	}

	if err := confirmApply(totalAdds, 0); err != nil {
		return err
	}

	// Now that the user confirmed, create pending cost centers and
	// re-plan so they carry IDs.
	matResult, err = materializer.Materialize(ctx, names, true)
	if err != nil {
		return err
	}
	plans, err = syncer.Plan(ctx, desired, matResult)
	if err != nil {
		return err
	}

	added, failed, applyErr := syncer.Apply(ctx, plans)
	fmt.Printf("\n✅ Added %d repositories", added)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Printf("\n")

	if applyErr != nil {
		return applyErr
	}
	if failed > 0 {
		return fmt.Errorf("sync completed with %d failed operations", failed)
	}
	return nil
}

func buildPolicy(teamsCfg config.TeamsConfig) costsync.AssignmentPolicy {
	if teamsCfg.Mode == config.NamingManual {
		return costsync.ManualMapPolicy{Mappings: teamsCfg.Mappings}
	}
	return costsync.AutoNamePolicy{Template: teamsCfg.NameTemplate}
}

func costCenterNames(desired map[string]costsync.Assignment) []string {
	seen := make(map[string]bool)
	var names []string
	for _, a := range desired {
		if !seen[a.CostCenter] {
			seen[a.CostCenter] = true
			names = append(names, a.CostCenter)
		}
	}
	return names
}

// displayPlan shows the planned changes in a human-readable format
func displayPlan(plan *costsync.SyncPlan, resolution *costsync.Resolution, isApply bool) {
	if isApply {
		fmt.Printf("\n📋 Planned changes:\n")
	} else {
		fmt.Printf("\n🔍 Plan mode: showing planned changes\n")
	}

	for _, cc := range plan.CostCenters {
		if len(cc.Add) == 0 && len(cc.Remove) == 0 && !cc.WouldCreate {
			fmt.Printf("\n📦 %s: no changes needed\n", cc.Name)
			continue
		}

		fmt.Printf("\n📦 %s:\n", cc.Name)
		if cc.WouldCreate {
			fmt.Printf("  + CREATE cost center\n")
			if cc.DeferredRemoval {
				fmt.Printf("    (removal analysis deferred until after creation)\n")
			}
		}
		for _, u := range cc.Add {
			fmt.Printf("  + ADD %s\n", u)
		}
		for _, u := range cc.Remove {
			fmt.Printf("  ⚠️  REMOVE %s\n", u)
		}
	}

	if resolution != nil {
		if len(resolution.SkippedTeams) > 0 {
			fmt.Printf("\n⏭️  Skipped %d unmapped teams\n", len(resolution.SkippedTeams))
		}
		for _, c := range resolution.Conflicts {
			teams := make([]string, len(c.Teams))
			for i, t := range c.Teams {
				teams[i] = t.Key()
			}
			fmt.Printf("⚠️  %s is in multiple teams (%s), last wins: %s\n",
				c.Username, strings.Join(teams, ", "), c.Winner.Key())
		}
	}

	if len(plan.Unresolved) > 0 {
		fmt.Printf("\n⚠️  Unresolved cost centers (assignments dropped): %s\n",
			strings.Join(plan.Unresolved, ", "))
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Cost centers: %d\n", len(plan.CostCenters))
	fmt.Printf("  • Additions: %d\n", plan.TotalAdds())
	fmt.Printf("  • Removals: %d\n", plan.TotalRemoves())
	if resolution != nil {
		fmt.Printf("  • Conflicts: %d\n", len(resolution.Conflicts))
	}
}

// displayRepoPlan shows planned repository assignments
func displayRepoPlan(plans []costsync.RepoPlan, isApply bool) {
	if isApply {
		fmt.Printf("\n📋 Planned changes:\n")
	} else {
		fmt.Printf("\n🔍 Plan mode: showing planned changes\n")
	}

	total := 0
	for _, p := range plans {
		if len(p.Add) == 0 && !p.WouldCreate {
			fmt.Printf("\n📦 %s: no changes needed\n", p.Name)
			continue
		}
		fmt.Printf("\n📦 %s:\n", p.Name)
		if p.WouldCreate {
			fmt.Printf("  + CREATE cost center\n")
		}
		for _, r := range p.Add {
			fmt.Printf("  + ADD %s\n", r)
		}
		total += len(p.Add)
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Cost centers: %d\n", len(plans))
	fmt.Printf("  • Repository additions: %d\n", total)
}

// displayResult shows the apply outcome per cost center
func displayResult(result *costsync.SyncResult) {
	if result.TotalFailed() == 0 {
		fmt.Printf("\n✅ Sync complete\n")
	} else {
		fmt.Printf("\n⚠️  Sync completed with failures\n")
	}

	for _, cc := range result.CostCenters {
		if cc.Added == 0 && cc.AddFailed == 0 && cc.Removed == 0 && cc.RemoveFailed == 0 && cc.SkippedElsewhere == 0 {
			continue
		}
		fmt.Printf("  • %s: added %d, removed %d", cc.Name, cc.Added, cc.Removed)
		if cc.AddFailed > 0 || cc.RemoveFailed > 0 {
			fmt.Printf(", failed %d", cc.AddFailed+cc.RemoveFailed)
		}
		if cc.SkippedElsewhere > 0 {
			fmt.Printf(", skipped %d (in another cost center)", cc.SkippedElsewhere)
		}
		fmt.Printf("\n")
	}

	fmt.Printf("\n📊 Totals: added %d, removed %d, failed %d, skipped %d\n",
		result.TotalAdded(), result.TotalRemoved(), result.TotalFailed(), result.TotalSkipped())
}

// confirmApply asks the user to type "apply" before mutating. In
// non-interactive sessions --yes is required.
func confirmApply(adds, removes int) error {
	if syncYes {
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("refusing to apply without confirmation in a non-interactive session: pass --yes")
	}

	fmt.Printf("\nAbout to add %d and remove %d users. Type 'apply' to continue: ", adds, removes)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading confirmation: %w", err)
	}
	if strings.TrimSpace(line) != "apply" {
		return fmt.Errorf("aborted")
	}
	return nil
}

// exportAssignments writes the resolved assignments to the configured
// export directory
func exportAssignments(cfg *config.Config, desired map[string]costsync.Assignment) error {
	records := make([]export.Record, 0, len(desired))
	for _, a := range desired {
		records = append(records, export.Record{
			Username:   a.Username,
			CostCenter: a.CostCenter,
			Team:       a.Team.Key(),
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CostCenter != records[j].CostCenter {
			return records[i].CostCenter < records[j].CostCenter
		}
		return records[i].Username < records[j].Username
	})

	exporter := export.NewExporter(cfg.Export.Directory)
	paths, err := exporter.Export(cfg.Export.Formats, records)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("📄 Exported %s\n", p)
	}
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Applying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
