package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthwallet/shc-service/pkg/server/framework"
	svcframework "github.com/healthwallet/shc-service/pkg/service/framework"
)

func Readiness(services []svcframework.Service) gin.HandlerFunc {
	return readiness{
		getter: servicesToGet{services},
	}.ready
}

type readiness struct {
	getter serviceGetter
}

type GetReadinessResponse struct {
	Status          svcframework.Status                       `json:"status"`
	ServiceStatuses map[svcframework.Type]svcframework.Status `json:"serviceStatuses"`
}

// ready godoc
//
//	@Summary		Readiness
//	@Description	ready runs a number of application specific checks to see if all the
//	@Description	relied upon services are healthy. Should return a 500 if not ready.
//	@Tags			Readiness
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	GetReadinessResponse
//	@Failure		500	{string}	string	"Internal server error"
//	@Router			/readiness [get]
func (r readiness) ready(c *gin.Context) {
	services := r.getter.getServices()
	numServices := len(services)
	readyServices := 0
	statuses := make(map[svcframework.Type]svcframework.Status)
	for _, s := range services {
		status := s.Status()
		statuses[s.Type()] = status
		if status.IsReady() {
			readyServices++
		}
	}

	var status svcframework.Status
	statusCode := http.StatusOK
	if readyServices < numServices {
		statusCode = http.StatusInternalServerError
		status = svcframework.Status{
			Status:  svcframework.StatusNotReady,
			Message: fmt.Sprintf("out of [%d] services, [%d] are ready", numServices, readyServices),
		}
	} else {
		status = svcframework.Status{
			Status:  svcframework.StatusReady,
			Message: "all services ready",
		}
	}

	response := GetReadinessResponse{
		Status:          status,
		ServiceStatuses: statuses,
	}
	framework.Respond(c, response, statusCode)
}

// serviceGetter is a dependency of this readiness handler to know which services are available in the server
type serviceGetter interface {
	getServices() []svcframework.Service
}

type servicesToGet struct {
	services []svcframework.Service
}

func (s servicesToGet) getServices() []svcframework.Service {
	return s.services
}
