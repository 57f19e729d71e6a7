package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/depscope/depscope-backend/internal/branches/domain"
	"github.com/depscope/depscope-backend/internal/branches/service"
	historyservice "github.com/depscope/depscope-backend/internal/history/service"
)

const refreshTimeout = 5 * time.Minute

// Scheduler refreshes the branch lists of saved history entries on a
// nightly cron. The branch list is the only field a saved analysis is
// allowed to change.
type Scheduler struct {
	history *historyservice.HistoryService
	lister  service.BranchLister
	cron    *cron.Cron
}

// NewScheduler creates a branch refresh scheduler.
func NewScheduler(history *historyservice.HistoryService, lister service.BranchLister) *Scheduler {
	return &Scheduler{history: history, lister: lister}
}

// Start registers the nightly refresh job.
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	// 3:00 AM, when the GitHub quota is least contended
	_, err := c.AddFunc("0 0 3 * * *", func() {
		s.RefreshAll()
	})
	if err != nil {
		log.Printf("Failed to create branch refresh cron job: %v", err)
		return
	}

	log.Println("Branch refresh scheduler started (running nightly at 3:00AM)")
	c.Start()
	s.cron = c
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RefreshAll re-fetches the branch list for every saved history entry
// across all workspaces. Each repository is fetched once per run.
func (s *Scheduler) RefreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	workspaces, err := s.history.Workspaces(ctx)
	if err != nil {
		log.Printf("Branch refresh: listing workspaces failed: %v", err)
		return
	}

	fetched := make(map[string][]string)
	refreshed := 0
	for _, ws := range workspaces {
		hlog, err := s.history.Log(ctx, ws)
		if err != nil {
			log.Printf("Branch refresh: loading history for %s failed: %v", ws, err)
			continue
		}
		for _, date := range hlog.Dates() {
			for _, item := range hlog[date] {
				key := item.Username + "/" + item.Repo
				branches, ok := fetched[key]
				if !ok {
					branches, err = s.fetchBranches(ctx, item.Username, item.Repo)
					if err != nil {
						log.Printf("Branch refresh: %s failed: %v", key, err)
						continue
					}
					fetched[key] = branches
				}
				if err := s.history.UpdateBranches(ctx, ws, item.Username, item.Repo, item.Branch, branches); err != nil {
					log.Printf("Branch refresh: updating %s@%s failed: %v", key, item.Branch, err)
					continue
				}
				refreshed++
			}
		}
	}
	log.Printf("Branch refresh completed: %d entries refreshed at %s", refreshed, time.Now().Format(time.RFC1123))
}

func (s *Scheduler) fetchBranches(ctx context.Context, owner, repo string) ([]string, error) {
	page, err := s.lister.ListBranches(ctx, owner, repo, 1)
	if err != nil {
		return nil, err
	}
	if page.Error != "" {
		return nil, domain.ErrPageFailed
	}
	branches := page.Branches
	if page.DefaultBranch != "" && !contains(branches, page.DefaultBranch) {
		branches = append([]string{page.DefaultBranch}, branches...)
	}
	return branches, nil
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
