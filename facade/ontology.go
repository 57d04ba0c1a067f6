package facade

import (
	"context"

	"graphstore.dev/identifier"
	"graphstore.dev/ontology"
	"graphstore.dev/principal"
)

// CreateDataType authorizes and installs a new DataType edition.
func (svc *Service) CreateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error {
	if err := svc.authorize(ctx, "facade.CreateDataType", actor, "create_data_type", principal.ResourceRef{Kind: "data_type", Id: dt.RecordId.String()}); err != nil {
		return err
	}
	return svc.store.CreateDataType(ctx, actor, dt)
}

// UpdateDataType authorizes and installs the next sequential DataType edition.
func (svc *Service) UpdateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error {
	if err := svc.authorize(ctx, "facade.UpdateDataType", actor, "update_data_type", principal.ResourceRef{Kind: "data_type", Id: dt.RecordId.String()}); err != nil {
		return err
	}
	return svc.store.UpdateDataType(ctx, actor, dt)
}

// ArchiveDataType authorizes and closes the transaction interval of v.
func (svc *Service) ArchiveDataType(ctx context.Context, actor identifier.ActorId, v identifier.VersionedUrl) error {
	if err := svc.authorize(ctx, "facade.ArchiveDataType", actor, "archive_data_type", principal.ResourceRef{Kind: "data_type", Id: v.String()}); err != nil {
		return err
	}
	return svc.store.ArchiveDataType(ctx, actor, v)
}

// CreatePropertyType authorizes and installs a new PropertyType edition.
func (svc *Service) CreatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error {
	if err := svc.authorize(ctx, "facade.CreatePropertyType", actor, "create_property_type", principal.ResourceRef{Kind: "property_type", Id: pt.RecordId.String()}); err != nil {
		return err
	}
	return svc.store.CreatePropertyType(ctx, actor, pt)
}

// UpdatePropertyType authorizes and installs the next sequential PropertyType edition.
func (svc *Service) UpdatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error {
	if err := svc.authorize(ctx, "facade.UpdatePropertyType", actor, "update_property_type", principal.ResourceRef{Kind: "property_type", Id: pt.RecordId.String()}); err != nil {
		return err
	}
	return svc.store.UpdatePropertyType(ctx, actor, pt)
}

// ArchivePropertyType authorizes and closes the transaction interval of v.
func (svc *Service) ArchivePropertyType(ctx context.Context, actor identifier.ActorId, v identifier.VersionedUrl) error {
	if err := svc.authorize(ctx, "facade.ArchivePropertyType", actor, "archive_property_type", principal.ResourceRef{Kind: "property_type", Id: v.String()}); err != nil {
		return err
	}
	return svc.store.ArchivePropertyType(ctx, actor, v)
}

// CreateEntityType authorizes and installs a new EntityType edition, the
// store recomputing its inheritance/constraint closures as part of the call.
func (svc *Service) CreateEntityType(ctx context.Context, actor identifier.ActorId, et *ontology.EntityType) error {
	if err := svc.authorize(ctx, "facade.CreateEntityType", actor, "create_entity_type", principal.ResourceRef{Kind: "entity_type", Id: et.RecordId.String()}); err != nil {
		return err
	}
	return svc.store.CreateEntityType(ctx, actor, et)
}

// UpdateEntityType authorizes and installs the next sequential EntityType edition.
func (svc *Service) UpdateEntityType(ctx context.Context, actor identifier.ActorId, base identifier.BaseUrl, next *ontology.EntityType) error {
	if err := svc.authorize(ctx, "facade.UpdateEntityType", actor, "update_entity_type", principal.ResourceRef{Kind: "entity_type", Id: next.RecordId.String()}); err != nil {
		return err
	}
	return svc.store.UpdateEntityType(ctx, actor, base, next)
}

// ArchiveEntityType authorizes and closes the transaction interval of v.
func (svc *Service) ArchiveEntityType(ctx context.Context, actor identifier.ActorId, v identifier.VersionedUrl) error {
	if err := svc.authorize(ctx, "facade.ArchiveEntityType", actor, "archive_entity_type", principal.ResourceRef{Kind: "entity_type", Id: v.String()}); err != nil {
		return err
	}
	return svc.store.ArchiveEntityType(ctx, actor, v)
}
