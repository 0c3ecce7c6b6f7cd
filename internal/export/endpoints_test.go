package export

import (
	"errors"
	"strings"
	"testing"
)

// TestLoadEndpoints tests parsing of admin-center tables
func TestLoadEndpoints(t *testing.T) {
	t.Run("Multi-geo table preserves row order", func(t *testing.T) {
		content := "AdminCenterUrl;MultiGeoLocation\n" +
			"https://contoso-admin.sharepoint.com;NAM\n" +
			"https://contosoeur-admin.sharepoint.com;EUR\n" +
			"https://contosoapc-admin.sharepoint.com;APC\n"
		path := writeTempFile(t, "centers.csv", content)

		endpoints, err := LoadEndpoints(path, false)
		if err != nil {
			t.Fatalf("LoadEndpoints() error = %v", err)
		}
		if len(endpoints) != 3 {
			t.Fatalf("LoadEndpoints() returned %d endpoints, want 3", len(endpoints))
		}
		wantGeos := []string{"NAM", "EUR", "APC"}
		for i, geo := range wantGeos {
			if endpoints[i].GeoLocation != geo {
				t.Errorf("endpoint %d geo = %q, want %q", i, endpoints[i].GeoLocation, geo)
			}
		}
		if endpoints[0].AdminCenterURL != "https://contoso-admin.sharepoint.com" {
			t.Errorf("endpoint 0 URL = %q", endpoints[0].AdminCenterURL)
		}
	})

	t.Run("Personal root column is optional by default", func(t *testing.T) {
		content := "AdminCenterUrl;MultiGeoLocation;PersonalRootSiteURL\n" +
			"https://contoso-admin.sharepoint.com;NAM;https://contoso-my.sharepoint.com\n"
		path := writeTempFile(t, "centers.csv", content)

		endpoints, err := LoadEndpoints(path, false)
		if err != nil {
			t.Fatalf("LoadEndpoints() error = %v", err)
		}
		if endpoints[0].PersonalRootSiteURL != "https://contoso-my.sharepoint.com" {
			t.Errorf("PersonalRootSiteURL = %q", endpoints[0].PersonalRootSiteURL)
		}
	})

	t.Run("Blank rows are skipped", func(t *testing.T) {
		content := "AdminCenterUrl;MultiGeoLocation\n" +
			"https://contoso-admin.sharepoint.com;NAM\n" +
			";\n" +
			"https://contosoeur-admin.sharepoint.com;EUR\n"
		path := writeTempFile(t, "centers.csv", content)

		endpoints, err := LoadEndpoints(path, false)
		if err != nil {
			t.Fatalf("LoadEndpoints() error = %v", err)
		}
		if len(endpoints) != 2 {
			t.Errorf("LoadEndpoints() returned %d endpoints, want 2", len(endpoints))
		}
	})
}

// TestLoadEndpoints_PersonalRoot tests the OneDrive table variant
func TestLoadEndpoints_PersonalRoot(t *testing.T) {
	t.Run("Missing column rejected", func(t *testing.T) {
		content := "AdminCenterUrl;MultiGeoLocation\n" +
			"https://contoso-admin.sharepoint.com;NAM\n"
		path := writeTempFile(t, "centers.csv", content)

		_, err := LoadEndpoints(path, true)
		if err == nil {
			t.Fatal("LoadEndpoints() expected error, got nil")
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("LoadEndpoints() error = %v, want ErrConfiguration", err)
		}
		if !strings.Contains(err.Error(), "PersonalRootSiteURL") {
			t.Errorf("LoadEndpoints() error = %v, want mention of PersonalRootSiteURL", err)
		}
	})

	t.Run("Missing value rejected", func(t *testing.T) {
		content := "AdminCenterUrl;MultiGeoLocation;PersonalRootSiteURL\n" +
			"https://contoso-admin.sharepoint.com;NAM;https://contoso-my.sharepoint.com\n" +
			"https://contosoeur-admin.sharepoint.com;EUR;\n"
		path := writeTempFile(t, "centers.csv", content)

		_, err := LoadEndpoints(path, true)
		if err == nil {
			t.Fatal("LoadEndpoints() expected error, got nil")
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("LoadEndpoints() error = %v, want ErrConfiguration", err)
		}
	})
}

func TestLoadEndpoints_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "Missing geo column",
			content: "AdminCenterUrl\nhttps://contoso-admin.sharepoint.com\n",
		},
		{
			name:    "No endpoint rows",
			content: "AdminCenterUrl;MultiGeoLocation\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "centers.csv", tt.content)

			_, err := LoadEndpoints(path, false)
			if err == nil {
				t.Fatal("LoadEndpoints() expected error, got nil")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("LoadEndpoints() error = %v, want ErrConfiguration", err)
			}
		})
	}
}
