package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
)

func TestBindHeader(t *testing.T) {
	type args struct {
		header map[string]string
		out    interface{}
	}

	type normalCase struct {
		App     string `header:"app"`
		Service string `header:"service"`

		Non   string `header:"-"`
		Empty bool
	}

	type complexCase struct {
		Nine              int64   `header:"nine"`
		ThousandAndSeven  uint64  `header:"thousand-and-seven"`
		NegativeThirtyTwo int64   `header:"negative-thirty-two"`
		HundredPointSix   float32 `header:"hundred-point-six"`
		Rose              string  `header:"rose"`
	}

	tests := []struct {
		name    string
		args    args
		want    interface{}
		wantErr error
	}{
		{
			name: "normal bind header",
			args: args{
				header: map[string]string{
					"app":     "agencia",
					"service": "site",
					"non":     "non",
					"empty":   "empty",
				},
				out: new(normalCase),
			},
			want: &normalCase{
				App:     "agencia",
				Service: "site",
				Non:     "",
				Empty:   false,
			},
			wantErr: nil,
		},
		{
			name: "complex bind header",
			args: args{
				header: map[string]string{
					"nine":                "9",
					"thousand-and-seven":  "1007",
					"negative-thirty-two": "-32",
					"hundred-point-six":   "100.6",
					"rose":                "rose",
				},
				out: new(complexCase),
			},
			want: &complexCase{
				Nine:              9,
				ThousandAndSeven:  1007,
				NegativeThirtyTwo: -32,
				HundredPointSix:   100.6,
				Rose:              "rose",
			},
			wantErr: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			for k, v := range tt.args.header {
				header.Set(k, v)
			}
			err := bindHeader(header, tt.args.out)
			assert.EqualValues(t, err, tt.wantErr)
			assert.EqualValues(t, tt.want, tt.args.out)
		})
	}
}

func TestBindPrincipal(t *testing.T) {
	type request struct {
		UserID   string `auth:"sub"`
		Username string `auth:"username"`
		Role     string `auth:"role"`
		Note     string `json:"note"`
	}

	type invalidRequest struct {
		Role bool `auth:"role"`
	}

	principal := &models.Principal{
		UserID:   models.ObjectID("65f1c0a2b3c4d5e6f7a8b9c0"),
		Username: "cliente1",
		Role:     models.RoleClient,
	}

	tests := []struct {
		name      string
		principal *models.Principal
		out       interface{}
		want      interface{}
		wantErr   error
	}{
		{
			name:      "authenticated caller",
			principal: principal,
			out:       new(request),
			want: &request{
				UserID:   "65f1c0a2b3c4d5e6f7a8b9c0",
				Username: "cliente1",
				Role:     "client",
			},
		},
		{
			name: "anonymous caller",
			out:  new(request),
			want: new(request),
		},
		{
			name:      "binding with wrong type",
			principal: principal,
			out:       new(invalidRequest),
			want:      new(invalidRequest),
			wantErr:   fmt.Errorf(`cannot parse invalidRequest.Role as bool from: "client" / cannot parse string with len 6 as bool`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.principal != nil {
				c.Set(PrincipalKey, tt.principal)
			}
			err := bindPrincipal(c, tt.out)
			assert.EqualValues(t, tt.wantErr, err)
			assert.EqualValues(t, tt.want, tt.out)
		})
	}
}
