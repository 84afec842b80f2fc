package boostrole

import (
	"context"
	"fmt"
	"time"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/metrics"
	"github.com/boostrole/boostrole/models"
	"github.com/bwmarrin/discordgo"
	"github.com/globalsign/mgo/bson"
	rediscache "github.com/go-redis/cache"
	"github.com/sirupsen/logrus"
)

// members are listed in pages of this size, the cursor is the last seen user id
const memberPageSize = 1000

// Reconciler periodically re-derives who still qualifies for a perk role
// and revokes the roles of everyone who no longer does.
type Reconciler struct {
	api      chatAPI
	store    roleStore
	workflow *Workflow

	interval time.Duration
	ready    <-chan struct{}
	ownerID  string

	// publishSummary is called after every guild sweep, nil disables publishing
	publishSummary func(summary models.SweepSummary)

	log logrus.FieldLogger
}

func NewReconciler(api chatAPI, store roleStore, workflow *Workflow, interval time.Duration, ready <-chan struct{}, ownerID string) *Reconciler {
	return &Reconciler{
		api:            api,
		store:          store,
		workflow:       workflow,
		interval:       interval,
		ready:          ready,
		ownerID:        ownerID,
		publishSummary: publishSummaryToRedis,
		log:            cache.GetLogger().WithField("module", "boostrole"),
	}
}

// Run blocks until the readiness gate opens, then sweeps forever. The
// interval is measured from sweep start to sweep start, a slow sweep does
// not stack extra delay on top.
func (r *Reconciler) Run(ctx context.Context) {
	select {
	case <-r.ready:
	case <-ctx.Done():
		return
	}

	r.log.Info("reconciler started, sweeping every ", r.interval)

	for {
		start := time.Now()

		r.Sweep(ctx)
		metrics.SweepsCompleted.Add(1)

		wait := r.interval - time.Since(start)
		if wait <= 0 {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Sweep runs one full pass over all guilds with tracked roles. Guilds are
// processed sequentially, a failing guild is logged and skipped, it never
// takes the rest of the sweep down with it.
func (r *Reconciler) Sweep(ctx context.Context) {
	guildIDs, err := r.store.GuildsWithEntries()
	if err != nil {
		r.log.Error("sweep aborted, failed to list guilds: ", err.Error())
		return
	}

	for _, guildID := range guildIDs {
		if ctx.Err() != nil {
			return
		}

		if err := r.sweepGuild(ctx, guildID); err != nil {
			r.log.WithField("guild", guildID).Error("guild sweep failed: ", err.Error())
		}
	}
}

func (r *Reconciler) sweepGuild(ctx context.Context, guildID string) error {
	settings, err := r.store.Settings(guildID)
	if err != nil {
		return err
	}
	if !settings.RemoveRoles {
		return nil
	}

	// metadata is for log lines only, a failure here never aborts the sweep
	guildName := guildID
	guildOwnerID := ""
	guild, err := r.api.Guild(guildID)
	if err != nil {
		r.log.WithField("guild", guildID).Warn("failed to fetch guild metadata: ", err.Error())
	} else {
		guildName = guild.Name
		guildOwnerID = guild.OwnerID
	}

	serverRoles, err := r.api.GuildRoles(guildID)
	if err != nil {
		return err
	}

	qualifying, err := r.qualifyingMembers(ctx, guildID, guildOwnerID, serverRoles, settings)
	if err != nil {
		return err
	}

	tracked, err := r.store.GuildEntries(guildID)
	if err != nil {
		return err
	}

	existingRoles := make(map[string]struct{}, len(serverRoles))
	for _, role := range serverRoles {
		existingRoles[role.ID] = struct{}{}
	}

	removedUsers := make([]string, 0)
	removeIDs := make([]bson.ObjectId, 0)
	recreated := false

	for _, entry := range tracked {
		if _, ok := qualifying[entry.UserID]; ok {
			// the exempt owner keeps their role even when it vanished
			// externally, rebuild it and remember the new role id
			if entry.UserID == r.ownerID && r.ownerID != "" {
				if _, exists := existingRoles[entry.RoleID]; !exists {
					entryCopy := entry
					if err := r.workflow.Recreate(ctx, &entryCopy); err != nil {
						r.log.WithField("guild", guildID).Error("failed to recreate owner role: ", err.Error())
					} else {
						recreated = true
					}
				}
			}
			continue
		}

		err := r.api.DeleteRole(guildID, entry.RoleID)
		if err != nil && !isUnknownRole(err) {
			// keep the record, the next sweep retries the delete
			r.log.WithField("guild", guildID).Error(
				fmt.Sprintf("failed to delete role %s of user %s: %s", entry.RoleID, entry.UserID, err.Error()))
			continue
		}

		removeIDs = append(removeIDs, entry.ID)
		removedUsers = append(removedUsers, entry.UserID)
	}

	if len(removeIDs) > 0 {
		removed, err := r.store.DeleteMany(guildID, removeIDs)
		if err != nil {
			return err
		}
		if removed != len(removedUsers) {
			r.log.WithField("guild", guildID).Warn(
				fmt.Sprintf("sweep removed %d users but deleted %d store entries", len(removedUsers), removed))
		}
		metrics.BoostRolesRemoved.Add(int64(len(removedUsers)))
	}

	r.log.WithFields(logrus.Fields{
		"guild":   guildName,
		"tracked": len(tracked),
		"removed": len(removedUsers),
	}).Info("guild sweep finished")

	if r.publishSummary != nil {
		r.publishSummary(models.SweepSummary{
			GuildID:      guildID,
			SweptAt:      time.Now().UTC(),
			TrackedRoles: len(tracked) - len(removedUsers),
			RemovedUsers: removedUsers,
			Recreated:    recreated,
		})
	}

	return nil
}

// qualifyingMembers pages through the full member list and collects everyone
// who still deserves a perk role: boosters, mods and admins, the guild
// owner, the override owner and holders of an exempt role. Pagination
// terminates on the first empty page.
func (r *Reconciler) qualifyingMembers(ctx context.Context, guildID string, guildOwnerID string, serverRoles []*discordgo.Role, settings models.BoostRoleSettings) (map[string]struct{}, error) {
	modRoles := modRoleSet(serverRoles)
	qualifying := make(map[string]struct{})

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := r.api.ListMembers(guildID, after, memberPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, member := range page {
			if r.memberQualifies(member, guildOwnerID, modRoles, settings) {
				qualifying[member.User.ID] = struct{}{}
			}
		}

		after = page[len(page)-1].User.ID
	}

	return qualifying, nil
}

func (r *Reconciler) memberQualifies(member *discordgo.Member, guildOwnerID string, modRoles map[string]struct{}, settings models.BoostRoleSettings) bool {
	if member == nil || member.User == nil {
		return false
	}

	if memberIsBoosting(member) {
		return true
	}

	if member.User.ID == guildOwnerID {
		return true
	}

	if r.ownerID != "" && member.User.ID == r.ownerID {
		return true
	}

	if settings.RoleAllowed(member.Roles) {
		return true
	}

	for _, roleID := range member.Roles {
		if _, ok := modRoles[roleID]; ok {
			return true
		}
	}

	return false
}

// publishSummaryToRedis caches the sweep summary for the REST API
func publishSummaryToRedis(summary models.SweepSummary) {
	err := cache.GetRedisCacheCodec().Set(&rediscache.Item{
		Key:        fmt.Sprintf(models.Redis_Key_BoostRole_Sweep, summary.GuildID),
		Object:     summary,
		Expiration: 24 * time.Hour,
	})
	if err != nil {
		cache.GetLogger().WithField("module", "boostrole").Error("failed to cache sweep summary: ", err.Error())
	}
}
