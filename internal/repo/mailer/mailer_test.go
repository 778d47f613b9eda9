package mailer

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := string(buildMessage("Agência", "no-reply@agencia.example", []string{"a@x.com", "b@x.com"}, "Novo lead: João", "<p>Olá</p>", at))

	assert.Contains(t, msg, "From: =?utf-8?q?Ag=C3=AAncia?= <no-reply@agencia.example>\r\n")
	assert.Contains(t, msg, "To: a@x.com, b@x.com\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.Contains(t, msg, "@agencia.example>\r\n")
	assert.Contains(t, msg, "Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n")
	assert.True(t, strings.HasSuffix(msg, "<p>Ol=C3=A1</p>"))
}

func TestDisabled(t *testing.T) {
	s := New(config.MailConfig{})
	assert.False(t, s.Enabled())
	assert.ErrorIs(t, s.Send(context.Background(), models.Mail{To: []string{"a@x.com"}}), ErrDisabled)
}

// fakeSMTP accepts one plain SMTP session and returns the DATA payload.
func fakeSMTP(t *testing.T) (addr string, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		reply("220 fake ESMTP")
		var body strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "DATA"):
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				out <- body.String()
				reply("250 queued")
			case strings.HasPrefix(cmd, "QUIT"):
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSendPlain(t *testing.T) {
	addr, data := fakeSMTP(t)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	s := New(config.MailConfig{Host: host, Port: port, From: "no-reply@agencia.example", Encryption: "none"})
	err = s.Send(context.Background(), models.Mail{
		To:       []string{"admin@agencia.example"},
		Subject:  "Teste",
		HTMLBody: "<b>ok</b>",
	})
	require.NoError(t, err)

	select {
	case body := <-data:
		assert.Contains(t, body, "To: admin@agencia.example")
		assert.Contains(t, body, "<b>ok</b>")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
