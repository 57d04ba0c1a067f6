package snapshot

import (
	"encoding/json"
	"fmt"

	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/ontology"
)

func (r DataTypeRecord) toOntology() (*ontology.DataType, error) {
	base, err := identifier.ParseBaseUrl(r.BaseUrl)
	if err != nil {
		return nil, err
	}
	dt := &ontology.DataType{
		Edition: ontology.Edition{RecordId: identifier.NewVersionedUrl(base, r.Version)},
		Schema:  r.Schema,
		Title:   r.Title,
	}
	if r.OwnerWebId != "" {
		web, err := identifier.ParseWebId(r.OwnerWebId)
		if err != nil {
			return nil, err
		}
		dt.Ownership = ontology.OwnedBy(web)
	}
	return dt, nil
}

func (r PropertyTypeRecord) toOntology() (*ontology.PropertyType, error) {
	base, err := identifier.ParseBaseUrl(r.BaseUrl)
	if err != nil {
		return nil, err
	}
	pt := &ontology.PropertyType{
		Edition: ontology.Edition{RecordId: identifier.NewVersionedUrl(base, r.Version)},
		Schema:  r.Schema,
		Title:   r.Title,
	}
	if r.OwnerWebId != "" {
		web, err := identifier.ParseWebId(r.OwnerWebId)
		if err != nil {
			return nil, err
		}
		pt.Ownership = ontology.OwnedBy(web)
	}
	return pt, nil
}

func (r EntityTypeRecord) toOntology() (*ontology.EntityType, error) {
	base, err := identifier.ParseBaseUrl(r.BaseUrl)
	if err != nil {
		return nil, err
	}
	et := &ontology.EntityType{
		Edition:  ontology.Edition{RecordId: identifier.NewVersionedUrl(base, r.Version)},
		Schema:   r.Schema,
		Title:    r.Title,
		Abstract: r.Abstract,
	}
	if r.OwnerWebId != "" {
		web, err := identifier.ParseWebId(r.OwnerWebId)
		if err != nil {
			return nil, err
		}
		et.Ownership = ontology.OwnedBy(web)
	}
	if et.InheritsFrom, err = versionedUrls(r.InheritsFrom); err != nil {
		return nil, err
	}
	if et.ConstrainsPropertiesOn, err = versionedUrls(r.ConstrainsPropertiesOn); err != nil {
		return nil, err
	}
	if et.ConstrainsLinksOn, err = versionedUrls(r.ConstrainsLinksOn); err != nil {
		return nil, err
	}
	if et.ConstrainsLinkDestinationsOn, err = versionedUrls(r.ConstrainsLinkDestinationsOn); err != nil {
		return nil, err
	}
	return et, nil
}

func versionedUrls(raw []string) ([]identifier.VersionedUrl, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]identifier.VersionedUrl, len(raw))
	for i, s := range raw {
		v, err := identifier.ParseVersionedUrl(s)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

func entityId(webId, uuid, draftId string) (identifier.EntityId, error) {
	web, err := identifier.ParseWebId(webId)
	if err != nil {
		return identifier.EntityId{}, err
	}
	u, err := identifier.ParseEntityUuid(uuid)
	if err != nil {
		return identifier.EntityId{}, err
	}
	id := identifier.EntityId{WebId: web, Uuid: u}
	if draftId != "" {
		d, err := identifier.ParseDraftId(draftId)
		if err != nil {
			return identifier.EntityId{}, err
		}
		id.DraftId = &d
	}
	return id, nil
}

func (r EntityRecord) toEdition() (*knowledge.Edition, error) {
	id, err := entityId(r.WebId, r.Uuid, r.DraftId)
	if err != nil {
		return nil, err
	}
	types, err := versionedUrls(r.Types)
	if err != nil {
		return nil, err
	}
	var props knowledge.Properties
	if err := json.Unmarshal(r.Properties, &props); err != nil {
		return nil, fmt.Errorf("snapshot: entity %s/%s properties: %w", r.WebId, r.Uuid, err)
	}

	ed := &knowledge.Edition{
		EntityId:   id,
		Properties: props,
		Types:      types,
	}
	if r.Link != nil {
		left, err := entityId(r.Link.LeftWebId, r.Link.LeftUuid, r.Link.LeftDraftId)
		if err != nil {
			return nil, err
		}
		right, err := entityId(r.Link.RightWebId, r.Link.RightUuid, r.Link.RightDraftId)
		if err != nil {
			return nil, err
		}
		ed.Link = &knowledge.LinkData{LeftEntityId: left, RightEntityId: right}
	}
	return ed, nil
}
