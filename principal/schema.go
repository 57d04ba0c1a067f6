package principal

// schema is the relational DDL the principal package's operations assume is
// already applied, mirroring the store package's single idempotent
// bootstrap script rather than a migration ladder.
const schema = `
CREATE TABLE IF NOT EXISTS webs (
	web_id uuid PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS accounts (
	actor_id uuid PRIMARY KEY,
	kind     text NOT NULL
);

CREATE TABLE IF NOT EXISTS account_groups (
	group_id      uuid PRIMARY KEY,
	kind          text NOT NULL,
	owner_web_id  uuid
);

CREATE TABLE IF NOT EXISTS account_group_members (
	group_id uuid NOT NULL REFERENCES account_groups(group_id),
	actor_id uuid NOT NULL REFERENCES accounts(actor_id),
	PRIMARY KEY (group_id, actor_id)
);

CREATE TABLE IF NOT EXISTS roles (
	role_id  uuid PRIMARY KEY,
	group_id uuid NOT NULL REFERENCES account_groups(group_id),
	name     text NOT NULL,
	effect   text NOT NULL,
	policy   jsonb NOT NULL,
	archived boolean NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS role_assignments (
	actor_id uuid NOT NULL REFERENCES accounts(actor_id),
	role_id  uuid NOT NULL REFERENCES roles(role_id),
	PRIMARY KEY (actor_id, role_id)
);
`
