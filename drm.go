package epubclean

import (
	"archive/zip"
	"fmt"
	"strings"
)

const (
	encryptionFilePath = "META-INF/encryption.xml"
	// sinfFilePath is only present in Apple FairPlay protected books.
	sinfFilePath = "META-INF/sinf.xml"
)

// Font obfuscation only scrambles embedded fonts; content documents stay
// readable and can be rewritten.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true, // IDPF
	"http://ns.adobe.com/pdf/enc#RC":     true, // Adobe
}

type xmlEncryption struct {
	EncryptedData []xmlEncryptedData `xml:"EncryptedData"`
}

type xmlEncryptedData struct {
	EncryptionMethod struct {
		Algorithm string `xml:"Algorithm,attr"`
	} `xml:"EncryptionMethod"`
	CipherReference struct {
		URI string `xml:"URI,attr"`
	} `xml:"CipherData>CipherReference"`
}

// encryptionInfo summarises META-INF/encryption.xml.
type encryptionInfo struct {
	// obfuscatedFonts lists resources scrambled with a font obfuscation
	// algorithm.
	obfuscatedFonts []string
}

// inspectEncryption rejects books whose resources are encrypted with
// anything other than font obfuscation. Rewriting such a book would write
// ciphertext through the markup parser. An encryption.xml that cannot be
// parsed is treated as DRM.
func inspectEncryption(zr *zip.Reader) (encryptionInfo, error) {
	var info encryptionInfo
	if findFileInsensitive(zr, sinfFilePath) != nil {
		return info, ErrDRMProtected
	}
	f := findFileInsensitive(zr, encryptionFilePath)
	if f == nil {
		return info, nil
	}
	data, err := readZipFile(f)
	if err != nil {
		return info, err
	}

	var enc xmlEncryption
	if err := decodeXML(data, &enc); err != nil {
		return info, fmt.Errorf("unreadable %s: %w", encryptionFilePath, ErrDRMProtected)
	}
	for _, ed := range enc.EncryptedData {
		algo := strings.TrimSpace(ed.EncryptionMethod.Algorithm)
		if !fontObfuscationAlgorithms[algo] {
			return info, fmt.Errorf("%s encrypted with %s: %w", ed.CipherReference.URI, algo, ErrDRMProtected)
		}
		info.obfuscatedFonts = append(info.obfuscatedFonts, ed.CipherReference.URI)
	}
	return info, nil
}
