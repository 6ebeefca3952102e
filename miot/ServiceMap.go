package miot

// Address はデバイスのプロトコルスキーマ上のプロパティ位置 (siid/piid) です。
type Address struct {
	ServiceID  int
	PropertyID int
}

// PropertyAddress はリモートデバイス上の1つのプロパティを識別します。
type PropertyAddress struct {
	DeviceID   string `json:"did"`
	ServiceID  int    `json:"siid"`
	PropertyID int    `json:"piid"`
}

func (a PropertyAddress) Address() Address {
	return Address{ServiceID: a.ServiceID, PropertyID: a.PropertyID}
}

// ServiceMapEntry は論理プロパティ1つ分のアドレスと書き込み用エンコーダです。
// Encode は論理値とワイヤ上の値が異なるプロパティ (mode) だけが持ちます。
type ServiceMapEntry struct {
	Address Address
	Encode  func(value any) any
}

// ServiceMap は論理プロパティ名からプロトコルアドレスへの静的なテーブルです。
type ServiceMap map[PropertyName]ServiceMapEntry

func identity(v any) any { return v }

func (m ServiceMap) Has(name PropertyName) bool {
	_, ok := m[name]
	return ok
}

// AddressOf は name のアドレスを did 付きで返します。
func (m ServiceMap) AddressOf(name PropertyName, did string) (PropertyAddress, error) {
	entry, ok := m[name]
	if !ok {
		return PropertyAddress{}, &UnknownPropertyError{Name: name.String()}
	}
	return PropertyAddress{
		DeviceID:   did,
		ServiceID:  entry.Address.ServiceID,
		PropertyID: entry.Address.PropertyID,
	}, nil
}

// EncodeFor は name に登録されたエンコーダを返します。未登録なら恒等関数です。
func (m ServiceMap) EncodeFor(name PropertyName) func(any) any {
	if entry, ok := m[name]; ok && entry.Encode != nil {
		return entry.Encode
	}
	return identity
}

// NameOf はアドレスから論理プロパティ名を逆引きします。
func (m ServiceMap) NameOf(addr Address) (PropertyName, bool) {
	for name, entry := range m {
		if entry.Address == addr {
			return name, true
		}
	}
	return PropertyUnknown, false
}
