package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderQuery_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name     string
		query    OrderQuery
		wantPage int
		wantSize int
	}{
		{name: "zero value", query: OrderQuery{}, wantPage: 1, wantSize: DefaultPageSize},
		{name: "oversized page", query: OrderQuery{Page: 3, PerPage: 500}, wantPage: 3, wantSize: DefaultPageSize},
		{name: "negative page", query: OrderQuery{Page: -1, PerPage: 20}, wantPage: 1, wantSize: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.ApplyDefaults()
			assert.Equal(t, tt.wantPage, q.Page)
			assert.Equal(t, tt.wantSize, q.PerPage)
		})
	}
}

func TestPage_Exhausted(t *testing.T) {
	assert.True(t, (&Page[RemoteProduct]{TotalPages: 2}).Exhausted())
	assert.False(t, (&Page[RemoteProduct]{TotalPages: 2, Fetched: 1}).Exhausted(), "records that mapped to nothing")
	assert.False(t, (&Page[RemoteProduct]{Items: []RemoteProduct{{ExternalID: "1"}}}).Exhausted())
}
