package epubclean

import (
	"errors"
	"strings"
	"testing"
)

func encryptionXML(entries ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container"
            xmlns:enc="http://www.w3.org/2001/04/xmlenc#">`)
	for i := 0; i+1 < len(entries); i += 2 {
		b.WriteString(`
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="` + entries[i] + `"/>
    <enc:CipherData><enc:CipherReference URI="` + entries[i+1] + `"/></enc:CipherData>
  </enc:EncryptedData>`)
	}
	b.WriteString("\n</encryption>")
	return b.String()
}

func TestInspectEncryption(t *testing.T) {
	const (
		idpf  = "http://www.idpf.org/2008/embedding"
		adobe = "http://ns.adobe.com/pdf/enc#RC"
		aes   = "http://www.w3.org/2001/04/xmlenc#aes128-cbc"
	)

	tests := []struct {
		name      string
		files     map[string]string
		wantFonts int
		wantDRM   bool
	}{
		{
			name:  "no encryption.xml",
			files: map[string]string{"OEBPS/content.opf": `<package/>`},
		},
		{
			name:      "IDPF font obfuscation",
			files:     map[string]string{"META-INF/encryption.xml": encryptionXML(idpf, "OEBPS/fonts/a.otf")},
			wantFonts: 1,
		},
		{
			name:      "mixed obfuscation algorithms",
			files:     map[string]string{"META-INF/encryption.xml": encryptionXML(idpf, "OEBPS/fonts/a.otf", adobe, "OEBPS/fonts/b.ttf")},
			wantFonts: 2,
		},
		{
			name:    "encrypted content",
			files:   map[string]string{"META-INF/encryption.xml": encryptionXML(idpf, "OEBPS/fonts/a.otf", aes, "OEBPS/ch1.xhtml")},
			wantDRM: true,
		},
		{
			name:    "FairPlay sinf",
			files:   map[string]string{"META-INF/sinf.xml": "<sinf/>"},
			wantDRM: true,
		},
		{
			name:    "unreadable encryption.xml",
			files:   map[string]string{"META-INF/encryption.xml": "<encryption><broken"},
			wantDRM: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := inspectEncryption(buildTestZip(t, tt.files))
			if tt.wantDRM {
				if !errors.Is(err, ErrDRMProtected) {
					t.Fatalf("inspectEncryption() error = %v, want ErrDRMProtected", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("inspectEncryption() error: %v", err)
			}
			if len(info.obfuscatedFonts) != tt.wantFonts {
				t.Errorf("obfuscatedFonts = %v, want %d entries", info.obfuscatedFonts, tt.wantFonts)
			}
		})
	}
}

func TestInspectEncryption_ReportsResource(t *testing.T) {
	zr := buildTestZip(t, map[string]string{
		"META-INF/encryption.xml": encryptionXML("http://www.w3.org/2001/04/xmlenc#aes256-cbc", "OEBPS/Text/ch2.xhtml"),
	})
	_, err := inspectEncryption(zr)
	if err == nil || !strings.Contains(err.Error(), "OEBPS/Text/ch2.xhtml") {
		t.Errorf("error %v should name the encrypted resource", err)
	}
}
