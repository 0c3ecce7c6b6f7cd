package graph

import (
	"bufio"
	"crypto"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/term"
	"software.sslmate.com/src/go-pkcs12"

	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/common/security"
	"m365exporttool/internal/export"
)

// CredentialConfig holds every input the credential chain may consume.
// Exactly one method is picked, in order: client secret, PFX certificate,
// then username/password (prompting when the password is absent).
type CredentialConfig struct {
	TenantID string
	ClientID string
	Secret   string
	PfxPath  string
	PfxPass  string
	Account  string
	Password string
}

// Prompter supplies interactive credential entry: a plain line read for the
// account name and a masked read for the password. Tests inject a fake;
// production code uses TerminalPrompter{}.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}

// TerminalPrompter prompts on the controlling terminal, masking password
// entry.
type TerminalPrompter struct{}

func (TerminalPrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (TerminalPrompter) ReadPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pass), nil
}

// ResolveCredential picks an authentication method from the config and builds
// the azidentity credential for it. With no method configured the resolver
// falls back to interactive sign-in: a non-prompting run must supply
// credentials up front. The password is never logged, only held in memory for
// the credential.
func ResolveCredential(cfg CredentialConfig, prompt Prompter, log *slog.Logger) (azcore.TokenCredential, error) {
	// 1. Client Secret
	if cfg.Secret != "" {
		logger.LogDebug(log, "Authentication method: Client Secret",
			"clientId", security.MaskGUID(cfg.ClientID), "secret", security.MaskSecret(cfg.Secret))
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.Secret, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: client secret credential: %w", export.ErrCredential, err)
		}
		return cred, nil
	}

	// 2. PFX Certificate File
	if cfg.PfxPath != "" {
		logger.LogDebug(log, "Authentication method: PFX Certificate File", "path", cfg.PfxPath)
		pfxData, err := os.ReadFile(cfg.PfxPath)
		if err != nil {
			logger.LogError(log, "Failed to read PFX file", "path", cfg.PfxPath, "error", err)
			return nil, fmt.Errorf("%w: failed to read PFX file: %w", export.ErrCredential, err)
		}
		logger.LogDebug(log, "PFX file read successfully", "bytes", len(pfxData))
		cred, err := createCertCredential(cfg.TenantID, cfg.ClientID, pfxData, cfg.PfxPass)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", export.ErrCredential, err)
		}
		return cred, nil
	}

	// 3. Username/Password (delegated). Missing pieces are prompted for:
	// a missing account falls back to a full interactive sign-in, a missing
	// password prompts masked entry only.
	account := cfg.Account
	password := cfg.Password
	if account == "" || password == "" {
		if prompt == nil {
			prompt = TerminalPrompter{}
		}
		var err error
		if account == "" {
			logger.LogWarn(log, "No authentication method configured, falling back to interactive sign-in")
			account, err = prompt.ReadLine("Enter account (user principal name): ")
			if err != nil {
				return nil, fmt.Errorf("%w: %w", export.ErrCredential, err)
			}
			if account == "" {
				return nil, fmt.Errorf("%w: no account entered", export.ErrCredential)
			}
		}
		if password == "" {
			password, err = prompt.ReadPassword(fmt.Sprintf("Enter password for %s: ", account))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", export.ErrCredential, err)
			}
			if password == "" {
				return nil, fmt.Errorf("%w: empty password for account %s", export.ErrCredential, security.MaskEmail(account))
			}
		}
	}

	logger.LogDebug(log, "Authentication method: Username/Password", "account", security.MaskEmail(account))
	cred, err := azidentity.NewUsernamePasswordCredential(cfg.TenantID, cfg.ClientID, account, password, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: username/password credential: %w", export.ErrCredential, err)
	}
	return cred, nil
}

func createCertCredential(tenantID, clientID string, pfxData []byte, password string) (*azidentity.ClientCertificateCredential, error) {
	// Decode PFX using go-pkcs12 library (supports SHA-256 and other modern algorithms)
	// pkcs12.DecodeChain returns private key and full certificate chain
	key, cert, caCerts, err := pkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PFX: %w", err)
	}

	privKey, ok := key.(crypto.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("decoded key is not a valid crypto.PrivateKey")
	}

	// Build certificate chain: primary cert + CA certs
	// azidentity expects a slice of certs with the leaf certificate first
	certs := []*x509.Certificate{cert}
	if len(caCerts) > 0 {
		certs = append(certs, caCerts...)
	}

	opts := &azidentity.ClientCertificateCredentialOptions{
		SendCertificateChain: true,
	}

	return azidentity.NewClientCertificateCredential(tenantID, clientID, certs, privKey, opts)
}

// TokenClaims represents relevant claims from Microsoft Entra ID JWT tokens
type TokenClaims struct {
	AppDisplayName string   `json:"app_displayname"` // Application display name from Entra ID
	TenantID       string   `json:"tid"`             // Tenant the token was issued for
	Roles          []string `json:"roles"`           // Assigned application roles (e.g., User.Read.All)
	jwt.RegisteredClaims
}

// PrintTokenInfo prints token expiry, a truncated token, and the JWT claims.
func PrintTokenInfo(token azcore.AccessToken) {
	fmt.Println()
	fmt.Println("Token Information:")
	fmt.Println("------------------")
	fmt.Printf("Token acquired successfully\n")
	fmt.Printf("Expires at: %s\n", token.ExpiresOn.Format("2006-01-02 15:04:05 MST"))

	timeUntilExpiry := time.Until(token.ExpiresOn)
	fmt.Printf("Valid for: %s\n", timeUntilExpiry.Round(time.Second))

	// Always truncate for security, even short tokens
	tokenStr := token.Token
	fmt.Printf("Token (truncated): %s\n", security.MaskAccessToken(tokenStr))
	fmt.Printf("Token length: %d characters\n", len(tokenStr))

	fmt.Println()
	fmt.Println("JWT Claims:")
	appName, tenant, roles, err := parseTokenClaims(tokenStr)
	if err != nil {
		fmt.Printf("  (Could not parse JWT claims: %v)\n", err)
	} else {
		fmt.Printf("  Application Name: %s\n", appName)
		fmt.Printf("  Tenant: %s\n", tenant)
		fmt.Printf("  Assigned Roles: %s\n", roles)
	}

	fmt.Println()
}

// parseTokenClaims extracts application name, tenant, and assigned roles from
// a JWT access token.
func parseTokenClaims(tokenString string) (string, string, string, error) {
	// Parse without verification (token already validated by Azure SDK)
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &TokenClaims{})
	if err != nil {
		return "", "", "", fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return "", "", "", fmt.Errorf("failed to extract claims from token")
	}

	appName := claims.AppDisplayName
	if appName == "" {
		appName = "(not available)"
	}

	tenant := claims.TenantID
	if tenant == "" {
		tenant = "(not available)"
	}

	rolesStr := "(none)"
	if len(claims.Roles) > 0 {
		rolesStr = strings.Join(claims.Roles, ", ")
	}

	return appName, tenant, rolesStr, nil
}
