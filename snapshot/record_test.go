package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataTypeRecordValidateRejectsMissingFields(t *testing.T) {
	assert.Error(t, DataTypeRecord{}.validate())
	assert.Error(t, DataTypeRecord{BaseUrl: "https://example.org/type/text/"}.validate())
	assert.NoError(t, DataTypeRecord{
		BaseUrl: "https://example.org/type/text/", Version: 1, Schema: []byte(`{}`), Title: "Text",
	}.validate())
}

func TestEntityTypeRecordValidateRequiresSchema(t *testing.T) {
	rec := EntityTypeRecord{BaseUrl: "https://example.org/type/person/", Version: 1}
	assert.Error(t, rec.validate())
	rec.Schema = []byte(`{}`)
	assert.NoError(t, rec.validate())
}

func TestEntityRecordValidateRequiresTypeAndProperties(t *testing.T) {
	rec := EntityRecord{WebId: "w", Uuid: "u"}
	assert.Error(t, rec.validate())
	rec.Types = []string{"https://example.org/type/person/v/1"}
	assert.Error(t, rec.validate())
	rec.Properties = []byte(`{}`)
	assert.NoError(t, rec.validate())
}

func TestPrincipalRecordValidateRequiresOwnerForWebTeam(t *testing.T) {
	rec := PrincipalRecord{PrincipalKind: "web_team", Id: "g1"}
	assert.Error(t, rec.validate())
	rec.OwnerWebId = "w1"
	assert.NoError(t, rec.validate())
}

func TestRoleRecordValidateRequiresPolicyOrInlineEffect(t *testing.T) {
	rec := RoleRecord{RoleRef: "r1", GroupId: "g1"}
	assert.Error(t, rec.validate())
	rec.Effect = "permit"
	assert.NoError(t, rec.validate())
}
