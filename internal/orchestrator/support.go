package orchestrator

import "github.com/ryxu-xo/euralink/internal/restclient"

// supportChecker adapts a cached /v4/info response into filters.SupportChecker.
type supportChecker struct {
	info *restclient.NodeInfo
}

func (s supportChecker) Supports(filterName string) bool {
	if s.info == nil {
		return true
	}
	for _, f := range s.info.Filters {
		if f == filterName {
			return true
		}
	}
	return false
}
