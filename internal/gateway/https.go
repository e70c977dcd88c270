package gateway

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/acme/autocert"

	"github.com/markb/plcgate/internal/log"
)

// HTTPSConfig holds HTTPS/TLS configuration.
type HTTPSConfig struct {
	Domain   string // Domain for Let's Encrypt certificate
	CertDir  string // Directory to cache certificates
	HTTPAddr string // Address for HTTP server (ACME challenges + redirect)
	Addr     string // Address for the HTTPS listener
}

// ValidateDomain checks if the domain is valid for Let's Encrypt.
// Returns an error if the domain is localhost, an IP address, or malformed.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain required for HTTPS")
	}

	lower := strings.ToLower(domain)
	if lower == "localhost" {
		return fmt.Errorf("Let's Encrypt requires a public domain, not localhost. Use a reverse proxy for local HTTPS")
	}

	if ip := net.ParseIP(domain); ip != nil {
		return fmt.Errorf("Let's Encrypt requires a domain name, not an IP address")
	}
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		return fmt.Errorf("Let's Encrypt requires a domain name, not an IP address")
	}

	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("invalid domain format: %s", domain)
	}
	if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		return fmt.Errorf("invalid domain format: %s", domain)
	}
	if strings.Contains(domain, "..") {
		return fmt.Errorf("invalid domain format: %s", domain)
	}

	return nil
}

// httpRedirectHandler redirects plain HTTP requests to HTTPS. ACME challenges
// are handled by autocert.Manager.HTTPHandler wrapping this handler.
func httpRedirectHandler(domain string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := "https://" + domain + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}

// ListenAndServeTLS serves the gateway over HTTPS with Let's Encrypt
// certificates. A companion HTTP listener answers ACME challenges and
// redirects everything else to HTTPS. Blocks until the HTTPS server stops.
func (s *Server) ListenAndServeTLS(cfg HTTPSConfig) error {
	if err := ValidateDomain(cfg.Domain); err != nil {
		return err
	}

	certDir := cfg.CertDir
	if certDir == "" {
		certDir = "./certs"
	}

	s.autocertMgr = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domain),
		Cache:      autocert.DirCache(certDir),
	}

	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":80"
	}
	s.httpRedirect = &http.Server{
		Addr:    httpAddr,
		Handler: s.autocertMgr.HTTPHandler(httpRedirectHandler(cfg.Domain)),
	}
	go func() {
		if err := s.httpRedirect.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP redirect server failed", "error", err.Error())
		}
	}()

	addr := cfg.Addr
	if addr == "" {
		addr = ":443"
	}
	s.httpsServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
		TLSConfig: &tls.Config{
			GetCertificate: s.autocertMgr.GetCertificate,
			NextProtos:     []string{"h2", "http/1.1"},
		},
	}

	log.Info("HTTPS enabled", "domain", cfg.Domain, "addr", addr)
	return s.httpsServer.ListenAndServeTLS("", "")
}
