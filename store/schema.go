package store

// Schema is the relational DDL the store package's operations assume is
// already applied. It is executed verbatim by New; there is no
// incremental migration tooling here, mirroring the pack's general
// preference for a single idempotent bootstrap script over a ladder of
// numbered migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS data_types (
	base_url      text NOT NULL,
	version       integer NOT NULL,
	schema        jsonb NOT NULL,
	title         text NOT NULL,
	owner_web_id  uuid,
	fetched_at    timestamptz,
	created_by    uuid NOT NULL,
	archived_by   uuid,
	tx_range      tstzrange NOT NULL,
	PRIMARY KEY (base_url, version)
);

CREATE TABLE IF NOT EXISTS property_types (
	base_url      text NOT NULL,
	version       integer NOT NULL,
	schema        jsonb NOT NULL,
	title         text NOT NULL,
	owner_web_id  uuid,
	fetched_at    timestamptz,
	created_by    uuid NOT NULL,
	archived_by   uuid,
	tx_range      tstzrange NOT NULL,
	PRIMARY KEY (base_url, version)
);

CREATE TABLE IF NOT EXISTS entity_types (
	base_url      text NOT NULL,
	version       integer NOT NULL,
	schema        jsonb NOT NULL,
	title         text NOT NULL,
	abstract      boolean NOT NULL DEFAULT false,
	owner_web_id  uuid,
	fetched_at    timestamptz,
	created_by    uuid NOT NULL,
	archived_by   uuid,
	tx_range      tstzrange NOT NULL,
	PRIMARY KEY (base_url, version)
);

CREATE TABLE IF NOT EXISTS entity_type_inherits_from (
	base_url        text NOT NULL,
	version         integer NOT NULL,
	target_base_url text NOT NULL,
	target_version  integer NOT NULL,
	PRIMARY KEY (base_url, version, target_base_url, target_version)
);

CREATE TABLE IF NOT EXISTS entity_type_constrains_properties_on (
	base_url        text NOT NULL,
	version         integer NOT NULL,
	target_base_url text NOT NULL,
	target_version  integer NOT NULL,
	PRIMARY KEY (base_url, version, target_base_url, target_version)
);

CREATE TABLE IF NOT EXISTS entity_type_constrains_links_on (
	base_url        text NOT NULL,
	version         integer NOT NULL,
	target_base_url text NOT NULL,
	target_version  integer NOT NULL,
	PRIMARY KEY (base_url, version, target_base_url, target_version)
);

CREATE TABLE IF NOT EXISTS entity_type_constrains_link_destinations_on (
	base_url        text NOT NULL,
	version         integer NOT NULL,
	target_base_url text NOT NULL,
	target_version  integer NOT NULL,
	PRIMARY KEY (base_url, version, target_base_url, target_version)
);

CREATE TABLE IF NOT EXISTS entity_ids (
	web_id      uuid NOT NULL,
	entity_uuid uuid NOT NULL,
	draft_id    uuid NOT NULL DEFAULT '00000000-0000-0000-0000-000000000000',
	PRIMARY KEY (web_id, entity_uuid, draft_id)
);

CREATE TABLE IF NOT EXISTS entity_editions (
	web_id             uuid NOT NULL,
	entity_uuid        uuid NOT NULL,
	draft_id           uuid NOT NULL DEFAULT '00000000-0000-0000-0000-000000000000',
	tx_range           tstzrange NOT NULL,
	decision_range     tstzrange NOT NULL,
	properties         jsonb NOT NULL,
	metadata           jsonb NOT NULL DEFAULT '{}',
	created_by         uuid NOT NULL,
	archived_by        uuid,
	left_web_id        uuid,
	left_entity_uuid   uuid,
	left_draft_id      uuid,
	right_web_id       uuid,
	right_entity_uuid  uuid,
	right_draft_id     uuid,
	PRIMARY KEY (web_id, entity_uuid, draft_id, tx_range)
);

CREATE TABLE IF NOT EXISTS entity_is_of_type (
	web_id       uuid NOT NULL,
	entity_uuid  uuid NOT NULL,
	draft_id     uuid NOT NULL DEFAULT '00000000-0000-0000-0000-000000000000',
	tx_range     tstzrange NOT NULL,
	type_base_url text NOT NULL,
	type_version  integer NOT NULL,
	PRIMARY KEY (web_id, entity_uuid, draft_id, tx_range, type_base_url, type_version)
);

-- entities flattens one edition joined to one of its claimed types into a
-- single row, giving the query package's compiled SQL the column names its
-- Path-to-column mapping assumes (entity_uuid, web_id, draft_id, the link
-- endpoint uuids, provenance, decision_time/transaction_time as ranges, and
-- entity_type_base_url/version). A multi-typed entity appears once per type;
-- facade.GetEntities deduplicates by identity and re-fetches the full type
-- list through store.EntityTypesOf.
CREATE OR REPLACE VIEW entities AS
SELECT
	e.web_id,
	e.entity_uuid,
	e.draft_id,
	e.left_entity_uuid,
	e.right_entity_uuid,
	e.created_by  AS created_by_id,
	e.archived_by AS archived_by_id,
	e.decision_range AS decision_time,
	e.tx_range      AS transaction_time,
	e.properties,
	t.type_base_url AS entity_type_base_url,
	t.type_version  AS entity_type_version
FROM entity_editions e
JOIN entity_is_of_type t
	ON t.web_id = e.web_id AND t.entity_uuid = e.entity_uuid AND t.draft_id = e.draft_id
	AND t.tx_range && e.tx_range;
`
