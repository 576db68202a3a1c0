package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"mneo.com/vms/core"
)

const (
	keySalt      = "MNEO_VMS_SALT_"
	keySuffix    = "_MNEO_VMS"
	expiryLayout = "2006-01-02"

	// Licenses lapse at 10:00 on the expiry date, not midnight, so a key
	// issued "until the 30th" still covers that morning's shift handover.
	expiryHour = 10
)

var (
	ErrInvalidKey     = errors.New("license key does not match this device")
	ErrExpired        = errors.New("license has expired")
	ErrNotActivated   = errors.New("no license stored on this device")
	ErrSealedForOther = errors.New("stored license was sealed on another device")
)

// DeviceMAC returns the hardware address of the first non-loopback interface,
// formatted AA:BB:CC:DD:EE:FF. The license key and the sealing key are both
// derived from it, which is what binds a database file to one machine.
func DeviceMAC() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return strings.ToUpper(iface.HardwareAddr.String()), nil
	}
	return "", errors.New("no usable network interface found")
}

// GenerateKey derives the license key for a device and expiry date
// (yyyy-MM-dd): the first 16 hex characters of
// sha256(mac + "_" + expiry + suffix), uppercased and grouped
// XXXX-XXXX-XXXX-XXXX. The admin-side generator uses the same derivation, so
// a key is only valid on the machine it was issued for.
func GenerateKey(mac, expiry string) string {
	sum := sha256.Sum256([]byte(mac + "_" + expiry + keySuffix))
	hexSum := strings.ToUpper(hex.EncodeToString(sum[:]))

	groups := make([]string, 0, 4)
	for i := 0; i < 16; i += 4 {
		groups = append(groups, hexSum[i:i+4])
	}
	return strings.Join(groups, "-")
}

// ValidateKey checks a supplied key against the expected derivation for this
// device and expiry.
func ValidateKey(mac, inputKey, expiry string) bool {
	return strings.EqualFold(strings.TrimSpace(inputKey), GenerateKey(mac, expiry))
}

// sealingKey is derived from the MAC so that ciphertext copied to another
// machine fails to open.
func sealingKey(mac string) []byte {
	sum := sha256.Sum256([]byte(keySalt + mac))
	return sum[:]
}

func seal(mac, plaintext string) (string, error) {
	block, err := aes.NewCipher(sealingKey(mac))
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func open(mac, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrSealedForOther
	}
	block, err := aes.NewCipher(sealingKey(mac))
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", ErrSealedForOther
	}
	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", ErrSealedForOther
	}
	return string(plain), nil
}

// Manager drives the license lifecycle against the record store.
type Manager struct {
	store *core.Store

	// macOverride lets tests pin the device identity.
	macOverride string
}

func NewManager(store *core.Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) mac() (string, error) {
	if m.macOverride != "" {
		return m.macOverride, nil
	}
	return DeviceMAC()
}

// VerifyDevice runs the startup device-binding check (see
// core.Store.VerifyDeviceBinding).
func (m *Manager) VerifyDevice() (wiped bool, err error) {
	mac, err := m.mac()
	if err != nil {
		return false, err
	}
	return m.store.VerifyDeviceBinding(mac)
}

// Activate validates the key for this device and expiry, then stores
// "key|expiry" sealed under the device key with the license marked active.
func (m *Manager) Activate(inputKey, expiry string) error {
	if _, err := time.ParseInLocation(expiryLayout, expiry, time.Local); err != nil {
		return fmt.Errorf("invalid expiry date %q: %w", expiry, err)
	}

	mac, err := m.mac()
	if err != nil {
		return err
	}
	if !ValidateKey(mac, inputKey, expiry) {
		return ErrInvalidKey
	}

	sealed, err := seal(mac, GenerateKey(mac, expiry)+"|"+expiry)
	if err != nil {
		return err
	}
	return m.store.UpsertLicense(sealed, mac, true)
}

// stored opens the persisted license and returns its key and expiry instant.
func (m *Manager) stored() (key string, expiresAt time.Time, active bool, err error) {
	record, err := m.store.License()
	if err != nil {
		return "", time.Time{}, false, err
	}
	if record == nil || record.LicenseKey == "" {
		return "", time.Time{}, false, ErrNotActivated
	}

	mac, err := m.mac()
	if err != nil {
		return "", time.Time{}, false, err
	}
	plain, err := open(mac, record.LicenseKey)
	if err != nil {
		return "", time.Time{}, false, err
	}

	key, expiryStr, found := strings.Cut(plain, "|")
	if !found {
		return "", time.Time{}, false, ErrSealedForOther
	}
	expiryDay, err := time.ParseInLocation(expiryLayout, expiryStr, time.Local)
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("stored expiry unreadable: %w", err)
	}

	expiresAt = expiryDay.Add(expiryHour * time.Hour)
	return key, expiresAt, record.IsActive, nil
}

// Check reports whether the device holds a valid, active, unexpired license.
// Called once at startup; the web layer also consults it before issuing
// sessions.
func (m *Manager) Check() error {
	key, expiresAt, active, err := m.stored()
	if err != nil {
		return err
	}
	if !active {
		return ErrNotActivated
	}
	if time.Now().After(expiresAt) {
		return ErrExpired
	}

	mac, err := m.mac()
	if err != nil {
		return err
	}
	if !ValidateKey(mac, key, expiresAt.Format(expiryLayout)) {
		return ErrInvalidKey
	}
	return nil
}

// Logout deactivates the stored license without discarding it; LoginWithKey
// restores it.
func (m *Manager) Logout() error {
	return m.store.SetLicenseActive(false)
}

// LoginWithKey reactivates a stored, deactivated license when the supplied
// key matches the sealed one and the license has not lapsed.
func (m *Manager) LoginWithKey(inputKey string) error {
	key, expiresAt, _, err := m.stored()
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(inputKey), key) {
		return ErrInvalidKey
	}
	if time.Now().After(expiresAt) {
		return ErrExpired
	}
	return m.store.SetLicenseActive(true)
}

// DeviceInfo is shown in the activation dialog so an operator can request a
// key for this machine.
type DeviceInfo struct {
	MACAddress string `json:"macAddress"`
	SampleKey  string `json:"sampleKey"`
}

func (m *Manager) DeviceInfo(expiry string) (DeviceInfo, error) {
	mac, err := m.mac()
	if err != nil {
		return DeviceInfo{}, err
	}
	if expiry == "" {
		expiry = time.Now().AddDate(1, 0, 0).Format(expiryLayout)
	}
	return DeviceInfo{MACAddress: mac, SampleKey: GenerateKey(mac, expiry)}, nil
}
