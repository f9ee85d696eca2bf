package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusTest struct {
	resp    http.Response
	success bool
}

var tests = []statusTest{
	{http.Response{StatusCode: 200}, true},
	{http.Response{StatusCode: 201}, true},
	{http.Response{StatusCode: 102}, false},
	{http.Response{StatusCode: 301}, false},
	{http.Response{StatusCode: 404}, false},
	{http.Response{StatusCode: 500}, false},
}

func TestIsSuccessStatusCode(t *testing.T) {
	for _, v := range tests {
		res := isSuccessStatusCode(&v.resp)
		assert.Equal(t, v.success, res, fmt.Sprintf("status %d", v.resp.StatusCode))
	}
}

func TestEnsureSuccessStatusCode(t *testing.T) {
	for _, v := range tests {
		err := EnsureSuccessStatusCode(&v.resp)
		assert.Equal(t, v.success, err == nil, fmt.Sprintf("status %d", v.resp.StatusCode))
	}
}
