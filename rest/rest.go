package rest

import (
	"fmt"
	"net/http"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/helpers"
	"github.com/boostrole/boostrole/models"
	"github.com/boostrole/boostrole/modules/plugins/boostrole"
	"github.com/boostrole/boostrole/version"
	"github.com/emicklei/go-restful"
	"github.com/getsentry/raven-go"
)

func NewRestServices() []*restful.WebService {
	services := make([]*restful.WebService, 0)

	service := new(restful.WebService)
	service.
		Path("/health").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)
	service.Route(service.GET("").To(GetHealth))
	services = append(services, service)

	service = new(restful.WebService)
	service.
		Path("/boostrole").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	service.Route(service.GET("/{guild-id}/roles").To(GetGuildBoostRoles))
	service.Route(service.GET("/{guild-id}/sweep").To(GetGuildSweepSummary))
	services = append(services, service)

	return services
}

type healthResponse struct {
	Status  string
	Version string
	Guilds  int
	Ready   bool
}

func GetHealth(request *restful.Request, response *restful.Response) {
	ready := false
	select {
	case <-cache.WaitReady():
		ready = true
	default:
	}

	response.WriteEntity(healthResponse{
		Status:  "ok",
		Version: version.BOT_VERSION,
		Guilds:  len(cache.GetSession().State.Guilds),
		Ready:   ready,
	})
}

func GetGuildBoostRoles(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")

	entries, err := boostrole.ListEntries(guildID)
	if err != nil {
		raven.CaptureError(err, map[string]string{"guildID": guildID})
		response.WriteError(http.StatusInternalServerError, err)
		return
	}

	returnRoles := make([]models.Rest_BoostRole, 0, len(entries))
	for _, entry := range entries {
		returnRoles = append(returnRoles, models.Rest_BoostRole{
			EntryID:   helpers.MdbIdToHuman(entry.ID),
			RoleID:    entry.RoleID,
			UserID:    entry.UserID,
			RoleName:  entry.RoleName,
			Color:     entry.Color,
			CreatedAt: entry.CreatedAt,
		})
	}

	response.WriteEntity(returnRoles)
}

func GetGuildSweepSummary(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")

	var summary models.SweepSummary
	key := fmt.Sprintf(models.Redis_Key_BoostRole_Sweep, guildID)
	if err := cache.GetRedisCacheCodec().Get(key, &summary); err != nil {
		response.WriteErrorString(http.StatusNotFound, "no sweep recorded for this guild yet")
		return
	}

	response.WriteEntity(summary)
}
