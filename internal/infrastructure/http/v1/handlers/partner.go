package handlers

import (
	"ledgerbook/internal/domain/catalogs/partner"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

// PartnerHTTPHandler keeps router signatures short.
type PartnerHTTPHandler = CatalogHandler[
	*partner.Partner,
	dto.CreatePartnerRequest,
	dto.UpdatePartnerRequest,
]

// NewPartnerHandler configures the generic catalog handler for partners.
func NewPartnerHandler(base *BaseHandler, service *partner.Service) *PartnerHTTPHandler {
	config := CatalogHandlerConfig[
		*partner.Partner,
		dto.CreatePartnerRequest,
		dto.UpdatePartnerRequest,
	]{
		Service:    service,
		EntityName: "partner",
		MapCreateDTO: func(req dto.CreatePartnerRequest) *partner.Partner {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdatePartnerRequest, existing *partner.Partner) *partner.Partner {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(entity *partner.Partner) any {
			return dto.FromPartner(entity)
		},
	}

	return NewCatalogHandler(base, config)
}
